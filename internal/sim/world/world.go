// Package world owns the mutable game state and the fixed-step tick
// orchestrator that advances every runner through its travel, gathering,
// and deposit cycles. All mutation happens inside Tick or through the
// command API; there is no internal concurrency, so a single goroutine
// must own the GameState for the process lifetime.
package world

import (
	"fmt"

	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/decisionlog"
	"runnerkeep.gg/internal/sim/eventbus"
	"runnerkeep.gg/internal/sim/items"
	"runnerkeep.gg/internal/sim/rules"
	"runnerkeep.gg/internal/sim/sequences"
	"runnerkeep.gg/internal/sim/tuning"
	"runnerkeep.gg/internal/sim/worldmap"
)

// GameState is the root aggregate: runners, the world map, the shared
// bank, the decision log, and the three named template libraries.
type GameState struct {
	cfg     tuning.Tuning
	catalog *items.Catalog
	bus     *eventbus.Bus

	Map  *worldmap.Map
	Bank *items.Bank
	Log  *decisionlog.Log

	Runners []*Runner

	Sequences     map[string]*sequences.Sequence
	MacroRulesets map[string]*rules.Ruleset
	MicroRulesets map[string]*rules.Ruleset

	tick    uint64
	elapsed float64 // simulated seconds

	nextRunnerNum int
	nextSeqNum    int
}

func New(cfg tuning.Tuning, catalog *items.Catalog, m *worldmap.Map, bus *eventbus.Bus) (*GameState, error) {
	if m == nil || !m.Initialized() {
		return nil, fmt.Errorf("world: map must be initialized before use")
	}
	if bus == nil {
		bus = eventbus.New()
	}
	g := &GameState{
		cfg:           cfg,
		catalog:       catalog,
		bus:           bus,
		Map:           m,
		Bank:          items.NewBank(),
		Log:           decisionlog.New(cfg.DecisionLogCapacity),
		Sequences:     map[string]*sequences.Sequence{},
		MacroRulesets: map[string]*rules.Ruleset{},
		MicroRulesets: map[string]*rules.Ruleset{},
	}
	g.wireDecisionLog()
	return g, nil
}

func (g *GameState) Bus() *eventbus.Bus   { return g.bus }
func (g *GameState) Tuning() tuning.Tuning { return g.cfg }
func (g *GameState) Catalog() *items.Catalog { return g.catalog }
func (g *GameState) CurrentTick() uint64  { return g.tick }
func (g *GameState) Elapsed() float64     { return g.elapsed }

func (g *GameState) RunnerByID(id string) *Runner {
	for _, r := range g.Runners {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// AddRunner creates a runner at the given node and announces it.
func (g *GameState) AddRunner(name, node string) (*Runner, error) {
	if g.Map.GetNode(node) == nil {
		return nil, fmt.Errorf("world: %s: unknown node %q", protocol.ErrUnknownNode, node)
	}
	g.nextRunnerNum++
	r := newRunner(fmt.Sprintf("R%03d", g.nextRunnerNum), name, node, g.cfg.InventorySlots)
	g.Runners = append(g.Runners, r)
	g.bus.Publish(protocol.RunnerCreated{Tick: g.tick, RunnerID: r.ID, Name: r.Name, Node: node})
	return r, nil
}

// Tick advances the simulation by one fixed step: for every runner, in
// order, evaluate macro rules, then advance the active activity. Listeners
// on the bus must not mutate runners during dispatch.
func (g *GameState) Tick() {
	nowTick := g.tick
	for _, r := range g.Runners {
		g.tickRunner(r, nowTick)
	}
	g.tick++
	g.elapsed += g.cfg.TickSeconds()
}

func (g *GameState) tickRunner(r *Runner, nowTick uint64) {
	if r.MacroRulesetID != "" && g.macroDue(nowTick) {
		g.evaluateMacro(r, nowTick)
	}

	switch {
	case r.Travel != nil:
		g.advanceTravel(r, nowTick)
	case r.Depositing != nil:
		g.advanceDeposit(r, nowTick)
	case r.Gathering != nil && r.Gathering.Phase == PhaseActive:
		g.advanceGathering(r, nowTick)
	default:
		// Idle with an active sequence: try to begin the current step.
		if r.SequenceID != "" {
			g.beginCurrentStep(r, nowTick)
		}
	}
}

func (g *GameState) macroDue(nowTick uint64) bool {
	every := uint64(g.cfg.MacroRecheckTicks)
	if every <= 1 {
		return true
	}
	return nowTick%every == 0
}
