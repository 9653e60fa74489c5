package world

import (
	"strings"
	"testing"

	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/eventbus"
	"runnerkeep.gg/internal/sim/items"
	"runnerkeep.gg/internal/sim/rules"
	"runnerkeep.gg/internal/sim/sequences"
	"runnerkeep.gg/internal/sim/skills"
	"runnerkeep.gg/internal/sim/tuning"
)

func TestGather_TicksPerItemAndXP(t *testing.T) {
	g := newTestGame(t)
	rec := record(g)
	r := addTestRunner(t, g, "Brom", "forest")

	// LOG: 40 base ticks, level 1 hyperbolic multiplier is exactly 1.
	if err := g.CommandGather(r.ID, 0); err != nil {
		t.Fatalf("gather: %v", err)
	}
	if r.State() != protocol.StateGathering {
		t.Fatalf("state = %s", r.State())
	}
	tickN(g, 39)
	if len(rec.produced) != 0 {
		t.Fatalf("item produced early: %+v", rec.produced)
	}
	g.Tick()
	if len(rec.produced) != 1 || rec.produced[0].Item != "LOG" {
		t.Fatalf("produced = %+v", rec.produced)
	}
	if n := r.Inventory.Count("LOG"); n != 1 {
		t.Fatalf("inventory LOG = %d", n)
	}
	// XP accrues every working tick whether or not an item completed.
	if got := r.Skills[skills.Woodcutting].XP; !approx(got, 20) {
		t.Fatalf("woodcutting xp = %v, want 40 * 0.5", got)
	}
}

func TestGather_HyperbolicLevelSpeedsUp(t *testing.T) {
	g := newTestGame(t)
	rec := record(g)
	r := addTestRunner(t, g, "Brom", "forest")
	r.Skills[skills.Woodcutting].Level = 11 // multiplier 1 + 10*0.05 = 1.5

	g.CommandGather(r.ID, 0)
	if want := 40.0 / 1.5; !approx(r.Gathering.TicksRequired, want) {
		t.Fatalf("ticks required = %v, want %v", r.Gathering.TicksRequired, want)
	}
	tickN(g, 26)
	if len(rec.produced) != 0 {
		t.Fatalf("item produced early")
	}
	g.Tick() // accum 27 >= 26.67
	if len(rec.produced) != 1 {
		t.Fatalf("item not produced on tick 27")
	}
}

func TestGather_PowerCurveFormula(t *testing.T) {
	cfg := testTuning()
	cfg.Gather.Formula = tuning.FormulaPowerCurve
	g, err := New(cfg, testCatalog(), testMap(t), eventbus.New())
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	r := addTestRunner(t, g, "Brom", "forest")
	r.Skills[skills.Woodcutting].Level = 4 // sqrt(4) = 2

	g.CommandGather(r.ID, 0)
	if !approx(r.Gathering.TicksRequired, 20) {
		t.Fatalf("ticks required = %v, want 40/2", r.Gathering.TicksRequired)
	}
}

func TestGather_TicksRequiredMonotonic(t *testing.T) {
	for _, formula := range []tuning.GatherFormula{tuning.FormulaHyperbolic, tuning.FormulaPowerCurve} {
		cfg := testTuning()
		cfg.Gather.Formula = formula
		g, err := New(cfg, testCatalog(), testMap(t), eventbus.New())
		if err != nil {
			t.Fatalf("new game: %v", err)
		}
		prev := g.ticksRequired(40, 1)
		for lvl := 2; lvl <= 50; lvl++ {
			cur := g.ticksRequired(40, lvl)
			if cur > prev+1e-9 {
				t.Fatalf("%s: ticks required rose from %v to %v at level %d", formula, prev, cur, lvl)
			}
			prev = cur
		}
	}
}

func TestGather_LevelUpRecomputesMidItem(t *testing.T) {
	cfg := testTuning()
	cfg.Skills.XPPerLevel = 10 // 20 ticks of LOG xp (0.5/tick) levels Woodcutting
	g, err := New(cfg, testCatalog(), testMap(t), eventbus.New())
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	rec := record(g)
	r := addTestRunner(t, g, "Brom", "forest")

	g.CommandGather(r.ID, 0)
	tickN(g, 20)
	if len(rec.levelUps) == 0 {
		t.Fatalf("expected a level up after 20 ticks")
	}
	// Level 2 hyperbolic multiplier 1.05: the in-flight requirement drops.
	if want := 40.0 / 1.05; !approx(r.Gathering.TicksRequired, want) {
		t.Fatalf("ticks required = %v, want %v", r.Gathering.TicksRequired, want)
	}
}

func TestGather_SkillTooLow(t *testing.T) {
	g := newTestGame(t)
	rec := record(g)
	r := addTestRunner(t, g, "Brom", "forest")

	// BERRY needs Foraging 5; the runner has 1.
	g.CommandGather(r.ID, 1)
	if len(rec.gatherFailed) != 1 || rec.gatherFailed[0].Reason != protocol.ErrSkillTooLow {
		t.Fatalf("failures = %+v", rec.gatherFailed)
	}
	if r.State() != protocol.StateIdle {
		t.Fatalf("state = %s, want idle", r.State())
	}
	if r.ActiveWarning == "" {
		t.Fatalf("expected a visible warning")
	}
}

func TestGather_BadIndex(t *testing.T) {
	g := newTestGame(t)
	rec := record(g)
	r := addTestRunner(t, g, "Brom", "forest")

	g.CommandGather(r.ID, 7)
	if len(rec.gatherFailed) != 1 || rec.gatherFailed[0].Reason != protocol.ErrBadGatherableIdx {
		t.Fatalf("failures = %+v", rec.gatherFailed)
	}
	if r.State() != protocol.StateIdle {
		t.Fatalf("state = %s", r.State())
	}
}

func TestGather_PassionRaisesEffectiveLevel(t *testing.T) {
	g := newTestGame(t)
	r := addTestRunner(t, g, "Brom", "forest")
	r.Skills[skills.Foraging].Level = 4

	if got := g.EffectiveLevel(r, skills.Foraging); got != 4 {
		t.Fatalf("effective = %d without passion", got)
	}
	if err := g.SetPassion(r.ID, skills.Foraging, true); err != nil {
		t.Fatalf("passion: %v", err)
	}
	if got := g.EffectiveLevel(r, skills.Foraging); got != 6 { // floor(4*1.5)
		t.Fatalf("effective = %d with passion, want 6", got)
	}
	// Effective 6 clears the BERRY requirement of 5.
	g.CommandGather(r.ID, 1)
	if r.State() != protocol.StateGathering {
		t.Fatalf("state = %s, want gathering", r.State())
	}
}

func TestGather_EffectiveLevelNeverBelowOne(t *testing.T) {
	g := newTestGame(t)
	r := addTestRunner(t, g, "Brom", "forest")
	if got := g.EffectiveLevel(r, skills.Woodcutting); got != 1 {
		t.Fatalf("effective = %d, want 1", got)
	}
}

func TestGather_ManualFullInventoryStops(t *testing.T) {
	g := newTestGame(t)
	rec := record(g)
	r := addTestRunner(t, g, "Brom", "forest")
	r.Inventory = items.NewInventory(2)

	g.CommandGather(r.ID, 0)
	tickN(g, 80) // two LOGs fill both slots
	if len(rec.produced) != 2 {
		t.Fatalf("produced = %d, want 2", len(rec.produced))
	}
	if len(rec.invFull) != 1 {
		t.Fatalf("inventory-full events = %d, want 1", len(rec.invFull))
	}
	// Manual gathering with no sequence has nowhere to yield to: stop.
	if r.State() != protocol.StateIdle || r.Gathering != nil {
		t.Fatalf("state = %s gathering = %+v", r.State(), r.Gathering)
	}
}

func TestGather_RejectedWhileTraveling(t *testing.T) {
	g := newTestGame(t)
	r := addTestRunner(t, g, "Brom", "hub")
	g.CommandTravel(r.ID, "forest")
	if err := g.CommandGather(r.ID, 0); err == nil {
		t.Fatalf("expected error gathering mid-travel")
	}
}

func TestWork_MicroFinishStepQuota(t *testing.T) {
	g := newTestGame(t)
	r := addTestRunner(t, g, "Brom", "forest")

	g.RegisterMicroRuleset(&rules.Ruleset{ID: "two-logs", Rules: []rules.Rule{
		{Label: "quota met", Enabled: true,
			Conditions: []rules.Condition{{Kind: rules.CondInventoryCount, Item: "LOG", Op: rules.CmpGE, Value: 2}},
			Action:     rules.Action{Kind: rules.ActFinishStep}},
		{Label: "chop", Enabled: true, Action: rules.Action{Kind: rules.ActGatherAny}},
	}})
	seqID := g.AddSequence(&sequences.Sequence{Name: "two logs then haul", Steps: []sequences.Step{
		{Kind: sequences.StepWork, MicroRuleset: "two-logs"},
		{Kind: sequences.StepTravelTo, Node: "hub"},
		{Kind: sequences.StepDeposit},
	}})
	if err := g.AssignRunner(r.ID, seqID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	tickN(g, 80)
	if n := r.Inventory.Count("LOG"); n != 2 {
		t.Fatalf("LOG = %d after 80 ticks, want 2", n)
	}
	if r.State() != protocol.StateGathering {
		t.Fatalf("state = %s", r.State())
	}
	// Next tick the quota rule matches and finish-step applies immediately.
	g.Tick()
	if r.State() != protocol.StateTraveling || r.Travel.To != "hub" {
		t.Fatalf("after quota: state=%s travel=%+v", r.State(), r.Travel)
	}
	if n := r.Inventory.Count("LOG"); n != 2 {
		t.Fatalf("finish-step must not produce a third LOG, got %d", n)
	}
}

func TestWork_MicroSwitchOnlyAtItemBoundary(t *testing.T) {
	g := newTestGame(t)
	rec := record(g)
	r := addTestRunner(t, g, "Brom", "forest")
	r.Skills[skills.Foraging].Level = 5 // BERRY eligible

	g.RegisterMicroRuleset(&rules.Ruleset{ID: "switch-on-ore", Rules: []rules.Rule{
		{Label: "berries once signalled", Enabled: true,
			Conditions: []rules.Condition{{Kind: rules.CondBankCount, Item: "ORE", Op: rules.CmpGE, Value: 1}},
			Action:     rules.Action{Kind: rules.ActGatherIndex, Gatherable: 1}},
		{Label: "chop", Enabled: true, Action: rules.Action{Kind: rules.ActGatherIndex, Gatherable: 0}},
	}})
	seqID := g.AddSequence(&sequences.Sequence{Name: "switchable work", Loop: true, Steps: []sequences.Step{
		{Kind: sequences.StepWork, MicroRuleset: "switch-on-ore"},
	}})
	g.AssignRunner(r.ID, seqID)

	tickN(g, 20) // mid-item on LOG
	g.Bank.Deposit("ORE", 1)
	tickN(g, 5)
	if r.Gathering.Index != 0 {
		t.Fatalf("switched targets mid-item")
	}
	tickN(g, 15) // LOG completes at the 40th working tick
	if len(rec.produced) != 1 || rec.produced[0].Item != "LOG" {
		t.Fatalf("produced = %+v", rec.produced)
	}
	g.Tick() // item boundary: now the switch applies
	if r.Gathering == nil || r.Gathering.Index != 1 {
		t.Fatalf("gathering = %+v, want index 1", r.Gathering)
	}
}

func TestWork_NoMicroRuleMatched(t *testing.T) {
	g := newTestGame(t)
	rec := record(g)
	r := addTestRunner(t, g, "Brom", "forest")

	g.RegisterMicroRuleset(&rules.Ruleset{ID: "impossible", Rules: []rules.Rule{
		{Label: "never", Enabled: true,
			Conditions: []rules.Condition{{Kind: rules.CondBankCount, Item: "GEM", Op: rules.CmpGE, Value: 999}},
			Action:     rules.Action{Kind: rules.ActGatherAny}},
	}})
	seqID := g.AddSequence(&sequences.Sequence{Name: "doomed", Steps: []sequences.Step{
		{Kind: sequences.StepWork, MicroRuleset: "impossible"},
	}})
	g.AssignRunner(r.ID, seqID)

	if len(rec.noRule) != 1 || rec.noRule[0].Layer != protocol.LayerMicro {
		t.Fatalf("no-rule events = %+v", rec.noRule)
	}
	if len(rec.stuck) != 1 || rec.stuck[0].Reason != protocol.ErrNoRuleMatched {
		t.Fatalf("stuck events = %+v", rec.stuck)
	}
	if r.State() != protocol.StateIdle || r.SequenceID != "" {
		t.Fatalf("runner not parked: state=%s seq=%q", r.State(), r.SequenceID)
	}
	if !strings.Contains(r.ActiveWarning, "impossible") {
		t.Fatalf("warning = %q", r.ActiveWarning)
	}
	// The world keeps ticking without repeating the failure.
	tickN(g, 10)
	if len(rec.stuck) != 1 {
		t.Fatalf("stuck repeated: %d events", len(rec.stuck))
	}
}

func TestWork_DisabledRulesSkipped(t *testing.T) {
	g := newTestGame(t)
	r := addTestRunner(t, g, "Brom", "forest")

	g.RegisterMicroRuleset(&rules.Ruleset{ID: "half-off", Rules: []rules.Rule{
		{Label: "berries (off)", Enabled: false, Action: rules.Action{Kind: rules.ActGatherIndex, Gatherable: 1}},
		{Label: "logs", Enabled: true, Action: rules.Action{Kind: rules.ActGatherIndex, Gatherable: 0}},
	}})
	seqID := g.AddSequence(&sequences.Sequence{Name: "half off", Steps: []sequences.Step{
		{Kind: sequences.StepWork, MicroRuleset: "half-off"},
	}})
	g.AssignRunner(r.ID, seqID)
	if r.Gathering == nil || r.Gathering.Index != 0 {
		t.Fatalf("gathering = %+v, want the enabled rule's target", r.Gathering)
	}
}

func TestWork_GatherAnySkipsIneligible(t *testing.T) {
	g := newTestGame(t)
	r := addTestRunner(t, g, "Brom", "forest")
	// Woodcutting 1 suffices for LOG; Foraging 1 is below BERRY's 5, so
	// gather-any lands on index 0 even though both exist.
	seqID := gatherLoop(g, "forest")
	g.AssignRunner(r.ID, seqID)
	if r.Gathering == nil || r.Gathering.Index != 0 {
		t.Fatalf("gathering = %+v", r.Gathering)
	}
}

func TestWork_GatherAnyNoneEligible(t *testing.T) {
	g := newTestGame(t)
	rec := record(g)
	r := addTestRunner(t, g, "Brom", "hub") // hub has no gatherables

	seqID := g.AddSequence(&sequences.Sequence{Name: "work the hub", Steps: []sequences.Step{
		{Kind: sequences.StepWork, MicroRuleset: "gather-any"},
	}})
	g.AssignRunner(r.ID, seqID)
	if len(rec.gatherFailed) != 1 || rec.gatherFailed[0].Reason != protocol.ErrNoGatherable {
		t.Fatalf("failures = %+v", rec.gatherFailed)
	}
	if r.State() != protocol.StateIdle {
		t.Fatalf("state = %s", r.State())
	}
}

func TestWork_UnknownAndEmptyRuleset(t *testing.T) {
	g := newTestGame(t)
	rec := record(g)
	r := addTestRunner(t, g, "Brom", "forest")

	seqID := g.AddSequence(&sequences.Sequence{Name: "ghost rules", Steps: []sequences.Step{
		{Kind: sequences.StepWork, MicroRuleset: "ghost"},
	}})
	g.AssignRunner(r.ID, seqID)
	if len(rec.stuck) != 1 || rec.stuck[0].Reason != protocol.ErrUnknownRuleset {
		t.Fatalf("stuck = %+v", rec.stuck)
	}

	g.RegisterMicroRuleset(&rules.Ruleset{ID: "hollow"})
	r2 := addTestRunner(t, g, "Wren", "forest")
	seq2 := g.AddSequence(&sequences.Sequence{Name: "hollow rules", Steps: []sequences.Step{
		{Kind: sequences.StepWork, MicroRuleset: "hollow"},
	}})
	g.AssignRunner(r2.ID, seq2)
	if len(rec.stuck) != 2 || rec.stuck[1].Reason != protocol.ErrEmptyRuleset {
		t.Fatalf("stuck = %+v", rec.stuck)
	}
}

func TestWork_NonMicroActionParks(t *testing.T) {
	g := newTestGame(t)
	r := addTestRunner(t, g, "Brom", "forest")
	rec := record(g)

	g.RegisterMicroRuleset(&rules.Ruleset{ID: "misfiled", Rules: []rules.Rule{
		{Label: "assign from micro", Enabled: true,
			Action: rules.Action{Kind: rules.ActAssignSequence, Sequence: "SEQ1"}},
	}})
	seqID := g.AddSequence(&sequences.Sequence{Name: "misfiled work", Steps: []sequences.Step{
		{Kind: sequences.StepWork, MicroRuleset: "misfiled"},
	}})
	g.AssignRunner(r.ID, seqID)

	if r.State() != protocol.StateIdle {
		t.Fatalf("state = %s", r.State())
	}
	if len(rec.stuck) != 1 || rec.stuck[0].Reason != protocol.ErrBadAction {
		t.Fatalf("stuck = %+v", rec.stuck)
	}
}
