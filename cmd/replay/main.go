// Command replay inspects a snapshot and optionally fast-forwards it
// headless, which is handy for checking what a keep will look like after
// hours of idle time without running the server.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"

	"runnerkeep.gg/internal/persistence/snapshot"
	"runnerkeep.gg/internal/sim/catalogs"
	"runnerkeep.gg/internal/sim/decisionlog"
	"runnerkeep.gg/internal/sim/eventbus"
	"runnerkeep.gg/internal/sim/items"
	"runnerkeep.gg/internal/sim/tuning"
	"runnerkeep.gg/internal/sim/world"
	"runnerkeep.gg/internal/sim/worldgen"
)

func main() {
	var (
		snapPath     = flag.String("snapshot", "", "path to .snap.zst")
		configDir    = flag.String("configs", "", "authored data directory for the item catalog (optional)")
		tuningPath   = flag.String("tuning", "", "tuning.yaml the save was running with (default: built-in)")
		ticks        = flag.Uint64("ticks", 0, "fast-forward this many ticks after loading")
		decisionsDir = flag.String("decisions", "", "dir of decisions-*.jsonl.zst to dump (optional)")
		runnerID     = flag.String("runner", "", "filter the decision dump to one runner")
	)
	flag.Parse()

	if *snapPath == "" && *decisionsDir == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot or -decisions")
		os.Exit(2)
	}

	if *snapPath != "" {
		if err := inspect(*snapPath, *configDir, *tuningPath, *ticks); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *decisionsDir != "" {
		if err := dumpDecisions(*decisionsDir, *runnerID); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func inspect(snapPath, configDir, tuningPath string, ticks uint64) error {
	snap, err := snapshot.Read(snapPath)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	fmt.Printf("snapshot v%d tick=%s game_time=%.1fs nodes=%d runners=%d sequences=%d bank_kinds=%d\n",
		snap.Header.Version, humanize.Comma(int64(snap.Header.Tick)), snap.Header.GameTime,
		len(snap.Map.Nodes), len(snap.Runners), len(snap.Sequences), len(snap.Bank))

	tune := tuning.Default()
	if tuningPath != "" {
		tune, err = tuning.Load(tuningPath)
		if err != nil {
			return fmt.Errorf("load tuning: %w", err)
		}
	}

	catalog := items.NewCatalog(worldgen.ItemDefs())
	if configDir != "" {
		cats, err := catalogs.Load(configDir)
		if err != nil {
			return fmt.Errorf("load catalogs: %w", err)
		}
		catalog = cats.Items
	}

	// The snapshot carries its own map; rebuild the routing tables the
	// codec does not store.
	if err := snap.Map.Initialize(); err != nil {
		return fmt.Errorf("snapshot map: %w", err)
	}
	g, err := world.New(tune, catalog, snap.Map, eventbus.New())
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}
	if err := g.ImportSnapshot(snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}

	for i := uint64(0); i < ticks; i++ {
		g.Tick()
	}
	if ticks > 0 {
		fmt.Printf("fast-forwarded %s ticks -> tick=%s\n",
			humanize.Comma(int64(ticks)), humanize.Comma(int64(g.CurrentTick())))
	}

	printBank(g)
	printRunners(g)
	return nil
}

func printBank(g *world.GameState) {
	kinds := make([]string, 0, len(g.Bank.Holdings))
	for item := range g.Bank.Holdings {
		kinds = append(kinds, item)
	}
	sort.Strings(kinds)
	fmt.Println("bank:")
	for _, item := range kinds {
		fmt.Printf("  %-16s %s\n", item, humanize.Comma(int64(g.Bank.Holdings[item])))
	}
}

func printRunners(g *world.GameState) {
	fmt.Println("runners:")
	for _, r := range g.Runners {
		line := fmt.Sprintf("  %s %-8s %-10s at %s", r.ID, r.Name, r.State(), r.Node)
		if r.SequenceID != "" {
			line += fmt.Sprintf(" seq=%s step=%d", r.SequenceID, r.StepIndex)
		}
		if r.ActiveWarning != "" {
			line += " WARN: " + r.ActiveWarning
		}
		fmt.Println(line)
	}
}

func dumpDecisions(dir, runnerID string) error {
	files, err := filepath.Glob(filepath.Join(dir, "decisions-*.jsonl.zst"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	if len(files) == 0 {
		return fmt.Errorf("no decision archives under %s", dir)
	}
	for _, path := range files {
		if err := dumpFile(path, runnerID); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func dumpFile(path, runnerID string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for sc.Scan() {
		var e decisionlog.Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		if runnerID != "" && e.RunnerID != runnerID {
			continue
		}
		line := fmt.Sprintf("t=%d %s %s@%s %s", e.Tick, e.Layer, e.RunnerName, e.Node, e.Reason)
		if e.Action != "" {
			line += " -> " + e.Action
		}
		if e.Conditions != "" {
			line += " (" + e.Conditions + ")"
		}
		fmt.Println(strings.TrimSpace(line))
	}
	return sc.Err()
}
