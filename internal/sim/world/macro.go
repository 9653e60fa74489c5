package world

import (
	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/rules"
	"runnerkeep.gg/internal/sim/sequences"
)

// evaluateMacro runs the runner's macro ruleset against current state and
// applies (or defers) the first matching rule's action. Runs every tick,
// so every application path suppresses redundant re-firing.
func (g *GameState) evaluateMacro(r *Runner, nowTick uint64) {
	rs := g.MacroRulesets[r.MacroRulesetID]
	if rs == nil {
		g.stuckConfig(r, protocol.ErrUnknownRuleset, "macro ruleset "+r.MacroRulesetID+" does not exist", nowTick)
		return
	}

	idx, ok := rules.Evaluate(rs, g.contextFor(r))
	if !ok {
		// No macro rule matching is normal: the runner keeps doing what
		// it was doing.
		return
	}
	rule := rs.Rules[idx]

	switch rule.Action.Kind {
	case rules.ActAssignSequence:
		g.macroAssign(r, rs, idx, nowTick)
	case rules.ActClearSequence:
		g.macroClear(r, rs, idx, nowTick)
	default:
		// Micro actions in a macro ruleset cannot apply here; skip.
	}
}

func (g *GameState) macroAssign(r *Runner, rs *rules.Ruleset, idx int, nowTick uint64) {
	rule := rs.Rules[idx]
	seqID := rule.Action.Sequence
	target := g.Sequences[seqID]
	if target == nil {
		g.stuckConfig(r, protocol.ErrUnknownSequence, "macro rule targets unknown sequence "+seqID, nowTick)
		return
	}

	// Suppress no-op reassignment: same id, or structurally identical to
	// the active sequence, or already pending.
	if r.SequenceID == seqID && !g.sequenceParked(r) {
		return
	}
	if sequences.StructuralEqual(target, g.activeSequence(r)) && !g.sequenceParked(r) {
		return
	}
	if p := r.Pending; p != nil && !p.Clear && p.SequenceID == seqID {
		return
	}

	deferred := rule.FinishCycle && g.hasActiveCycle(r)
	g.publishMacroFired(r, rs, idx, deferred, nowTick)
	if deferred {
		r.Pending = &PendingAssign{SequenceID: seqID}
		g.bus.Publish(protocol.SequenceAssigned{Tick: nowTick, RunnerID: r.ID, SequenceID: seqID, Deferred: true})
		return
	}
	g.assignSequenceNow(r, seqID, nowTick)
}

func (g *GameState) macroClear(r *Runner, rs *rules.Ruleset, idx int, nowTick uint64) {
	rule := rs.Rules[idx]
	if r.SequenceID == "" && r.Pending == nil {
		return
	}
	if p := r.Pending; p != nil && p.Clear {
		return
	}

	deferred := rule.FinishCycle && g.hasActiveCycle(r)
	g.publishMacroFired(r, rs, idx, deferred, nowTick)
	if deferred {
		r.Pending = &PendingAssign{Clear: true}
		return
	}
	g.clearSequenceNow(r, nowTick)
}

func (g *GameState) publishMacroFired(r *Runner, rs *rules.Ruleset, idx int, deferred bool, nowTick uint64) {
	rule := rs.Rules[idx]
	g.bus.Publish(protocol.RuleFired{
		Tick:       nowTick,
		RunnerID:   r.ID,
		Node:       r.Node,
		Layer:      protocol.LayerMacro,
		RulesetID:  rs.ID,
		RuleIndex:  idx,
		RuleLabel:  rule.Label,
		Action:     rule.Action.String(),
		Conditions: rules.Describe(rule.Conditions, g.contextFor(r)),
		Deferred:   deferred,
	})
}
