// Package snapshot defines the versioned flat save format and its
// on-disk codec. The structs here are deliberately decoupled from the
// live simulation types: the simulation converts in and out, so internal
// refactors never silently break old saves.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"runnerkeep.gg/internal/sim/decisionlog"
	"runnerkeep.gg/internal/sim/rules"
	"runnerkeep.gg/internal/sim/sequences"
	"runnerkeep.gg/internal/sim/worldmap"
)

type Header struct {
	Version  int     `json:"version"`
	Tick     uint64  `json:"tick"`
	GameTime float64 `json:"game_time"`
}

// SnapshotV1 is the complete save: world graph, runners mid-activity,
// bank, libraries, and the decision log, plus the digests of the data
// files the run was started from.
type SnapshotV1 struct {
	Header Header `json:"header"`

	ItemsDigest     string `json:"items_digest,omitempty"`
	WorldDigest     string `json:"world_digest,omitempty"`
	RulesetsDigest  string `json:"rulesets_digest,omitempty"`
	SequencesDigest string `json:"sequences_digest,omitempty"`

	Map *worldmap.Map `json:"map"`

	Runners []RunnerV1     `json:"runners"`
	Bank    map[string]int `json:"bank"`

	Sequences     []*sequences.Sequence `json:"sequences"`
	MacroRulesets []*rules.Ruleset      `json:"macro_rulesets"`
	MicroRulesets []*rules.Ruleset      `json:"micro_rulesets"`

	DecisionLog []decisionlog.Entry `json:"decision_log,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type CountersV1 struct {
	NextRunner   int `json:"next_runner"`
	NextSequence int `json:"next_sequence"`
}

type RunnerV1 struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Node string `json:"node"`

	Skills    map[string]SkillV1 `json:"skills"`
	Inventory InventoryV1        `json:"inventory"`

	Travel     *TravelV1     `json:"travel,omitempty"`
	Gathering  *GatheringV1  `json:"gathering,omitempty"`
	Depositing *DepositingV1 `json:"depositing,omitempty"`

	SequenceID string     `json:"sequence_id,omitempty"`
	StepIndex  int        `json:"step_index,omitempty"`
	Pending    *PendingV1 `json:"pending,omitempty"`

	MacroRulesetID string `json:"macro_ruleset_id,omitempty"`
	ActiveWarning  string `json:"active_warning,omitempty"`
}

type SkillV1 struct {
	Level   int     `json:"level"`
	XP      float64 `json:"xp"`
	Passion bool    `json:"passion,omitempty"`
}

type InventoryV1 struct {
	Capacity int       `json:"capacity"`
	Slots    []StackV1 `json:"slots,omitempty"`
}

type StackV1 struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type TravelV1 struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	Total        float64  `json:"total"`
	Covered      float64  `json:"covered"`
	VirtualStart *[2]float64 `json:"virtual_start,omitempty"`
}

type GatheringV1 struct {
	Node          string  `json:"node"`
	Index         int     `json:"index"`
	Accum         float64 `json:"accum"`
	TicksRequired float64 `json:"ticks_required"`
	Phase         string  `json:"phase"`
}

type DepositingV1 struct {
	Node           string `json:"node"`
	TicksRemaining int    `json:"ticks_remaining"`
}

type PendingV1 struct {
	SequenceID string `json:"sequence_id,omitempty"`
	Clear      bool   `json:"clear,omitempty"`
}

// Write stores a snapshot as a zstd stream: one JSON header line for
// cheap inspection, then the gob-encoded body. Flush and close failures
// surface as errors: a truncated save is worse than no save.
func Write(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)
	defer func() {
		if ferr := bw.Flush(); ferr != nil && err == nil {
			err = ferr
		}
		if cerr := enc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func Read(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// Skip the header line; the gob body carries the header too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != 1 {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}
