package world

import (
	"fmt"

	"runnerkeep.gg/internal/persistence/snapshot"
	"runnerkeep.gg/internal/sim/items"
	"runnerkeep.gg/internal/sim/rules"
	"runnerkeep.gg/internal/sim/sequences"
	"runnerkeep.gg/internal/sim/skills"
	"runnerkeep.gg/internal/sim/worldmap"
)

// Digests are the data-file digests recorded into snapshots so a resumed
// save can detect it was written against different authored data.
type Digests struct {
	Items     string
	World     string
	Rulesets  string
	Sequences string
}

// ExportSnapshot converts the full game state into the flat save format.
// Call between ticks only.
func (g *GameState) ExportSnapshot(d Digests) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header:          snapshot.Header{Version: 1, Tick: g.tick, GameTime: g.elapsed},
		ItemsDigest:     d.Items,
		WorldDigest:     d.World,
		RulesetsDigest:  d.Rulesets,
		SequencesDigest: d.Sequences,
		Map:             g.Map,
		Bank:            map[string]int{},
		DecisionLog:     g.Log.Snapshot(),
		Counters: snapshot.CountersV1{
			NextRunner:   g.nextRunnerNum,
			NextSequence: g.nextSeqNum,
		},
	}
	for item, n := range g.Bank.Holdings {
		snap.Bank[item] = n
	}
	for _, seq := range g.Sequences {
		snap.Sequences = append(snap.Sequences, seq)
	}
	for _, rs := range g.MacroRulesets {
		snap.MacroRulesets = append(snap.MacroRulesets, rs)
	}
	for _, rs := range g.MicroRulesets {
		snap.MicroRulesets = append(snap.MicroRulesets, rs)
	}
	for _, r := range g.Runners {
		snap.Runners = append(snap.Runners, exportRunner(r))
	}
	return snap
}

func exportRunner(r *Runner) snapshot.RunnerV1 {
	out := snapshot.RunnerV1{
		ID:             r.ID,
		Name:           r.Name,
		Node:           r.Node,
		Skills:         map[string]snapshot.SkillV1{},
		Inventory:      snapshot.InventoryV1{Capacity: r.Inventory.Capacity},
		SequenceID:     r.SequenceID,
		StepIndex:      r.StepIndex,
		MacroRulesetID: r.MacroRulesetID,
		ActiveWarning:  r.ActiveWarning,
	}
	for id, s := range r.Skills {
		out.Skills[string(id)] = snapshot.SkillV1{Level: s.Level, XP: s.XP, Passion: s.Passion}
	}
	for _, st := range r.Inventory.Slots {
		out.Inventory.Slots = append(out.Inventory.Slots, snapshot.StackV1{Item: st.Item, Count: st.Count})
	}
	if t := r.Travel; t != nil {
		tv := &snapshot.TravelV1{From: t.From, To: t.To, Total: t.Total, Covered: t.Covered}
		if t.VirtualStart != nil {
			tv.VirtualStart = &[2]float64{t.VirtualStart.X, t.VirtualStart.Y}
		}
		out.Travel = tv
	}
	if gs := r.Gathering; gs != nil {
		out.Gathering = &snapshot.GatheringV1{
			Node: gs.Node, Index: gs.Index, Accum: gs.Accum,
			TicksRequired: gs.TicksRequired, Phase: string(gs.Phase),
		}
	}
	if d := r.Depositing; d != nil {
		out.Depositing = &snapshot.DepositingV1{Node: d.Node, TicksRemaining: d.TicksRemaining}
	}
	if p := r.Pending; p != nil {
		out.Pending = &snapshot.PendingV1{SequenceID: p.SequenceID, Clear: p.Clear}
	}
	return out
}

// ImportSnapshot replaces the mutable state with the save's contents. The
// map, libraries, runners, bank, clock, and decision log all come from
// the snapshot; tuning and the item catalog stay as constructed.
func (g *GameState) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Map == nil {
		return fmt.Errorf("world: snapshot has no map")
	}
	if err := snap.Map.Initialize(); err != nil {
		return fmt.Errorf("world: snapshot map: %w", err)
	}
	g.Map = snap.Map

	g.Bank = items.NewBank()
	for item, n := range snap.Bank {
		g.Bank.Deposit(item, n)
	}

	g.Sequences = map[string]*sequences.Sequence{}
	for _, seq := range snap.Sequences {
		g.Sequences[seq.ID] = seq
	}
	g.MacroRulesets = map[string]*rules.Ruleset{}
	for _, rs := range snap.MacroRulesets {
		g.MacroRulesets[rs.ID] = rs
	}
	g.MicroRulesets = map[string]*rules.Ruleset{}
	for _, rs := range snap.MicroRulesets {
		g.MicroRulesets[rs.ID] = rs
	}

	g.Runners = nil
	for _, rv := range snap.Runners {
		r, err := g.importRunner(rv)
		if err != nil {
			return err
		}
		g.Runners = append(g.Runners, r)
	}

	g.Log.Restore(snap.DecisionLog)
	g.tick = snap.Header.Tick
	g.elapsed = snap.Header.GameTime
	g.nextRunnerNum = snap.Counters.NextRunner
	g.nextSeqNum = snap.Counters.NextSequence
	return nil
}

func (g *GameState) importRunner(rv snapshot.RunnerV1) (*Runner, error) {
	if g.Map.GetNode(rv.Node) == nil {
		return nil, fmt.Errorf("world: runner %s at unknown node %q", rv.ID, rv.Node)
	}
	r := &Runner{
		ID:             rv.ID,
		Name:           rv.Name,
		Node:           rv.Node,
		Skills:         map[skills.ID]*Skill{},
		Inventory:      items.NewInventory(rv.Inventory.Capacity),
		SequenceID:     rv.SequenceID,
		StepIndex:      rv.StepIndex,
		MacroRulesetID: rv.MacroRulesetID,
		ActiveWarning:  rv.ActiveWarning,
	}
	for id, sv := range rv.Skills {
		r.Skills[skills.ID(id)] = &Skill{Level: sv.Level, XP: sv.XP, Passion: sv.Passion}
	}
	// Saves from older skill sets still get the full current set.
	for _, id := range skills.All() {
		if r.Skills[id] == nil {
			r.Skills[id] = &Skill{Level: 1}
		}
	}
	for _, st := range rv.Inventory.Slots {
		r.Inventory.Slots = append(r.Inventory.Slots, items.Stack{Item: st.Item, Count: st.Count})
	}
	if tv := rv.Travel; tv != nil {
		t := &TravelState{From: tv.From, To: tv.To, Total: tv.Total, Covered: tv.Covered}
		if tv.VirtualStart != nil {
			t.VirtualStart = &worldmap.Vec2{X: tv.VirtualStart[0], Y: tv.VirtualStart[1]}
		}
		r.Travel = t
	}
	if gv := rv.Gathering; gv != nil {
		r.Gathering = &GatheringState{
			Node: gv.Node, Index: gv.Index, Accum: gv.Accum,
			TicksRequired: gv.TicksRequired, Phase: GatherPhase(gv.Phase),
		}
	}
	if dv := rv.Depositing; dv != nil {
		r.Depositing = &DepositingState{Node: dv.Node, TicksRemaining: dv.TicksRemaining}
	}
	if pv := rv.Pending; pv != nil {
		r.Pending = &PendingAssign{SequenceID: pv.SequenceID, Clear: pv.Clear}
	}
	return r, nil
}
