// Command server runs a keep: the fixed-rate simulation loop, periodic
// snapshots with a save ledger, the decision-trail archive, and the
// read-only observer websocket.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"runnerkeep.gg/internal/host"
	persistlog "runnerkeep.gg/internal/persistence/log"
	"runnerkeep.gg/internal/persistence/savedb"
	"runnerkeep.gg/internal/persistence/snapshot"
	"runnerkeep.gg/internal/sim/catalogs"
	"runnerkeep.gg/internal/sim/decisionlog"
	"runnerkeep.gg/internal/sim/eventbus"
	"runnerkeep.gg/internal/sim/items"
	"runnerkeep.gg/internal/sim/tuning"
	"runnerkeep.gg/internal/sim/world"
	"runnerkeep.gg/internal/sim/worldgen"
	"runnerkeep.gg/internal/sim/worldmap"
	"runnerkeep.gg/internal/transport/observer"
)

var runnerNames = []string{"Brom", "Wren", "Sable", "Tam", "Isolde", "Garr", "Petra", "Oswin"}

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "authored data directory (items/world/rulesets/sequences)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Int64("seed", 1337, "world seed for generated maps (used when no configs exist)")
		genNodes   = flag.Int("gen_nodes", 8, "node count for generated maps")
		runners    = flag.Int("runners", 3, "runners to seed in a fresh world")
		snapPath   = flag.String("snapshot", "", "snapshot to resume from (overrides the save ledger)")
		loadLatest = flag.Bool("load_latest", true, "resume from the newest ledger save when -snapshot is empty")
		keepSaves  = flag.Int("keep_saves", 10, "snapshots to retain before pruning")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if err := run(runConfig{
		Addr:       *addr,
		ConfigDir:  *configDir,
		DataDir:    *dataDir,
		TuningPath: *tuningPath,
		Seed:       *seed,
		GenNodes:   *genNodes,
		Runners:    *runners,
		SnapPath:   *snapPath,
		LoadLatest: *loadLatest,
		KeepSaves:  *keepSaves,
	}, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

type runConfig struct {
	Addr       string
	ConfigDir  string
	DataDir    string
	TuningPath string
	Seed       int64
	GenNodes   int
	Runners    int
	SnapPath   string
	LoadLatest bool
	KeepSaves  int
}

func run(cfg runConfig, logger *slog.Logger) error {
	tp := cfg.TuningPath
	if tp == "" {
		tp = filepath.Join(cfg.ConfigDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("load tuning: %w", err)
		}
		logger.Info("tuning not found, using defaults", "path", tp)
		tune = tuning.Default()
	}

	cats, m, catalog, err := loadWorldData(cfg, logger)
	if err != nil {
		return err
	}

	bus := eventbus.New()
	game, err := world.New(tune, catalog, m, bus)
	if err != nil {
		return fmt.Errorf("create world: %w", err)
	}

	digests := world.Digests{}
	catalogDigests := map[string]string{}
	if cats != nil {
		digests = world.Digests{
			Items:     cats.ItemsDigest,
			World:     cats.WorldDigest,
			Rulesets:  cats.RulesetsDigest,
			Sequences: cats.SequencesDigest,
		}
		catalogDigests = map[string]string{
			"items":     cats.ItemsDigest,
			"world":     cats.WorldDigest,
			"rulesets":  cats.RulesetsDigest,
			"sequences": cats.SequencesDigest,
		}
		for _, rs := range cats.MacroRulesets {
			game.RegisterMacroRuleset(rs)
		}
		for _, rs := range cats.MicroRulesets {
			game.RegisterMicroRuleset(rs)
		}
		for _, seq := range cats.Sequences {
			game.AddSequence(seq)
		}
	}

	store, err := savedb.Open(filepath.Join(cfg.DataDir, "saves.db"))
	if err != nil {
		return fmt.Errorf("open save ledger: %w", err)
	}
	defer store.Close()

	resumed, err := resume(cfg, game, store, digests, logger)
	if err != nil {
		return err
	}
	if !resumed {
		seedRunners(cfg, game, cats, logger)
	}

	dlog := persistlog.NewDecisionLogger(cfg.DataDir)
	defer dlog.Close()
	wireDecisionArchive(game, dlog, logger)

	hub := observer.NewHub()
	observer.Wire(bus, hub)
	obs := observer.NewServer(hub, tune.TickDurationMs, catalogDigests, logger)

	loop := host.New(host.Config{
		TickDuration:     time.Duration(tune.TickDurationMs) * time.Millisecond,
		MaxTicksPerFrame: tune.MaxTicksPerFrame,
	}, game, logger)

	sv := &saver{
		dir:     cfg.DataDir,
		store:   store,
		keep:    cfg.KeepSaves,
		digests: digests,
		log:     logger,
	}
	every := uint64(tune.SnapshotEveryTicks)
	loop.OnTick = func(tick uint64) {
		if every > 0 && tick%every == 0 {
			sv.save(game, false)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observe", obs.Handler())
	mux.HandleFunc("/v1/status", statusHandler(loop, time.Now()))
	httpSrv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		logger.Info("http listening", "addr", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "err", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("simulation running",
		"tick_ms", tune.TickDurationMs,
		"runners", len(game.Runners),
		"nodes", len(game.Map.Nodes))
	err = loop.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// Final save on the way out.
	sv.save(game, true)

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	_ = httpSrv.Shutdown(shutCtx)
	logger.Info("shutdown complete", "tick", game.CurrentTick())
	return nil
}

// loadWorldData prefers authored configs; absent a config directory it
// generates a world so the server can run out of the box.
func loadWorldData(cfg runConfig, logger *slog.Logger) (*catalogs.Catalogs, *worldmap.Map, *items.Catalog, error) {
	if _, err := os.Stat(cfg.ConfigDir); err == nil {
		cats, err := catalogs.Load(cfg.ConfigDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load catalogs: %w", err)
		}
		logger.Info("catalogs loaded", "dir", cfg.ConfigDir, "nodes", len(cats.Map.Nodes))
		return cats, cats.Map, cats.Items, nil
	}

	logger.Info("no config directory, generating world", "seed", cfg.Seed, "nodes", cfg.GenNodes)
	gen := worldgen.DefaultConfig()
	gen.Seed = cfg.Seed
	gen.Nodes = cfg.GenNodes
	m, err := worldgen.Generate(gen)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generate world: %w", err)
	}
	return nil, m, items.NewCatalog(worldgen.ItemDefs()), nil
}

func resume(cfg runConfig, game *world.GameState, store *savedb.Store, digests world.Digests, logger *slog.Logger) (bool, error) {
	path := cfg.SnapPath
	if path == "" && cfg.LoadLatest {
		rec, ok, err := store.Latest()
		if err != nil {
			return false, fmt.Errorf("save ledger: %w", err)
		}
		if ok {
			path = rec.Path
		}
	}
	if path == "" {
		return false, nil
	}
	snap, err := snapshot.Read(path)
	if err != nil {
		return false, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if digests.Items != "" && snap.ItemsDigest != "" && snap.ItemsDigest != digests.Items {
		logger.Warn("snapshot was written against different item data", "path", path)
	}
	if err := game.ImportSnapshot(snap); err != nil {
		return false, fmt.Errorf("import snapshot %s: %w", path, err)
	}
	logger.Info("resumed from snapshot", "path", path, "tick", snap.Header.Tick)
	return true, nil
}

func seedRunners(cfg runConfig, game *world.GameState, cats *catalogs.Catalogs, logger *slog.Logger) {
	hub := ""
	if len(game.Map.Nodes) > 0 {
		hub = game.Map.Nodes[0].ID
	}
	for i := 0; i < cfg.Runners; i++ {
		r, err := game.AddRunner(runnerNames[i%len(runnerNames)], hub)
		if err != nil {
			logger.Error("seed runner", "err", err)
			continue
		}
		if cats != nil && len(cats.MacroRulesets) > 0 {
			if err := game.SetMacroRuleset(r.ID, cats.MacroRulesets[0].ID); err != nil {
				logger.Error("attach macro ruleset", "runner", r.ID, "err", err)
			}
		}
	}
	logger.Info("seeded fresh world", "runners", cfg.Runners, "node", hub)
}

func wireDecisionArchive(game *world.GameState, dlog *persistlog.DecisionLogger, logger *slog.Logger) {
	var failed atomic.Bool
	game.Log.OnAppend = func(e decisionlog.Entry) {
		if err := dlog.WriteEntry(e); err != nil && failed.CompareAndSwap(false, true) {
			logger.Error("decision archive write failed, further errors suppressed", "err", err)
		}
	}
}

// saver exports between ticks on the loop goroutine and writes the file
// off-loop so a slow disk never stalls the simulation.
type saver struct {
	dir     string
	store   *savedb.Store
	keep    int
	digests world.Digests
	log     *slog.Logger
	busy    atomic.Bool
}

func (s *saver) save(game *world.GameState, wait bool) {
	snap := game.ExportSnapshot(s.digests)
	if wait {
		s.write(snap)
		return
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.log.Warn("previous snapshot still writing, skipping", "tick", snap.Header.Tick)
		return
	}
	go func() {
		defer s.busy.Store(false)
		s.write(snap)
	}()
}

func (s *saver) write(snap snapshot.SnapshotV1) {
	start := time.Now()
	path := filepath.Join(s.dir, "saves", fmt.Sprintf("tick-%012d.snap.zst", snap.Header.Tick))
	if err := snapshot.Write(path, snap); err != nil {
		s.log.Error("write snapshot", "path", path, "err", err)
		return
	}
	rec, err := s.store.Insert(savedb.Record{
		Tick:            snap.Header.Tick,
		GameTime:        snap.Header.GameTime,
		Path:            path,
		ItemsDigest:     snap.ItemsDigest,
		WorldDigest:     snap.WorldDigest,
		RulesetsDigest:  snap.RulesetsDigest,
		SequencesDigest: snap.SequencesDigest,
	})
	if err != nil {
		s.log.Error("record snapshot", "err", err)
		return
	}
	pruned, err := s.store.Prune(s.keep)
	if err != nil {
		s.log.Error("prune saves", "err", err)
	}
	for _, p := range pruned {
		_ = os.Remove(p)
	}
	s.log.Info("snapshot written",
		"id", rec.ID,
		"tick", humanize.Comma(int64(snap.Header.Tick)),
		"took", time.Since(start).Round(time.Millisecond),
		"pruned", len(pruned))
}

type statusRunner struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Node    string `json:"node"`
	State   string `json:"state"`
	Warning string `json:"warning,omitempty"`
}

type statusResponse struct {
	Tick     string         `json:"tick"`
	GameTime string         `json:"game_time"`
	Uptime   string         `json:"uptime"`
	Runners  []statusRunner `json:"runners"`
	Bank     map[string]int `json:"bank"`
}

func statusHandler(loop *host.Loop, started time.Time) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var resp statusResponse
		loop.Call(func(g *world.GameState) {
			resp.Tick = humanize.Comma(int64(g.CurrentTick()))
			resp.GameTime = (time.Duration(g.Elapsed() * float64(time.Second))).String()
			resp.Bank = map[string]int{}
			for item, n := range g.Bank.Holdings {
				resp.Bank[item] = n
			}
			for _, run := range g.Runners {
				resp.Runners = append(resp.Runners, statusRunner{
					ID:      run.ID,
					Name:    run.Name,
					Node:    run.Node,
					State:   string(run.State()),
					Warning: run.ActiveWarning,
				})
			}
		})
		resp.Uptime = humanize.Time(started)
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}
