package world

import (
	"fmt"

	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/rules"
	"runnerkeep.gg/internal/sim/sequences"
	"runnerkeep.gg/internal/sim/worldmap"
)

type workResult int

const (
	workStarted workResult = iota
	workFinished
	workStuck
)

// beginWorkStep evaluates the step's micro ruleset and starts gathering.
// An empty or unknown ruleset, a bad gatherable index, or no matching rule
// all park the runner with a warning instead of guessing a fallback:
// silent recovery would hide authoring mistakes.
func (g *GameState) beginWorkStep(r *Runner, microRulesetID string, nowTick uint64) workResult {
	rs := g.MicroRulesets[microRulesetID]
	if rs == nil {
		g.stuckConfig(r, protocol.ErrUnknownRuleset, "micro ruleset "+microRulesetID+" does not exist", nowTick)
		return workStuck
	}
	if len(rs.Rules) == 0 {
		g.stuckConfig(r, protocol.ErrEmptyRuleset, "micro ruleset "+microRulesetID+" has no rules", nowTick)
		return workStuck
	}

	idx, ok := rules.Evaluate(rs, g.contextFor(r))
	if !ok {
		g.stuckNoMicroRule(r, rs, nowTick)
		return workStuck
	}
	rule := rs.Rules[idx]
	g.publishMicroFired(r, rs, idx, nowTick)

	switch rule.Action.Kind {
	case rules.ActFinishStep:
		return workFinished
	case rules.ActGatherIndex:
		if g.startGathering(r, rule.Action.Gatherable, nowTick) {
			return workStarted
		}
		return workStuck
	case rules.ActGatherAny:
		target, ok := g.pickGatherable(r)
		if !ok {
			g.failGathering(r, -1, protocol.ErrNoGatherable, nowTick)
			return workStuck
		}
		if g.startGathering(r, target, nowTick) {
			return workStarted
		}
		return workStuck
	default:
		g.stuckConfig(r, protocol.ErrBadAction, fmt.Sprintf("micro rule %d has non-micro action %s", idx, rule.Action.Kind), nowTick)
		return workStuck
	}
}

// pickGatherable resolves a gather-any action: resume the remembered
// gatherable from before a deposit round-trip when it is still eligible,
// else the first gatherable the runner's effective level allows.
func (g *GameState) pickGatherable(r *Runner) (int, bool) {
	node := g.Map.GetNode(r.Node)
	if node == nil {
		return 0, false
	}
	if memo := r.Gathering; memo != nil && memo.Phase != PhaseActive && memo.Node == r.Node {
		if g.gatherableEligible(r, node, memo.Index) {
			return memo.Index, true
		}
	}
	for i := range node.Gatherables {
		if g.gatherableEligible(r, node, i) {
			return i, true
		}
	}
	return 0, false
}

func (g *GameState) gatherableEligible(r *Runner, node *worldmap.Node, idx int) bool {
	if idx < 0 || idx >= len(node.Gatherables) {
		return false
	}
	cfg := node.Gatherables[idx]
	return g.EffectiveLevel(r, cfg.Skill) >= cfg.MinSkillLevel
}

// startGathering enters the gathering state, or fails without entering any
// state when preconditions do not hold.
func (g *GameState) startGathering(r *Runner, index int, nowTick uint64) bool {
	node := g.Map.GetNode(r.Node)
	if node == nil || index < 0 || index >= len(node.Gatherables) {
		g.failGathering(r, index, protocol.ErrBadGatherableIdx, nowTick)
		return false
	}
	cfg := node.Gatherables[index]
	if g.EffectiveLevel(r, cfg.Skill) < cfg.MinSkillLevel {
		g.failGathering(r, index, protocol.ErrSkillTooLow, nowTick)
		return false
	}

	// Resuming the same gatherable after a deposit round-trip keeps the
	// accumulated progress; anything else starts fresh.
	accum := 0.0
	if memo := r.Gathering; memo != nil && memo.Phase != PhaseActive &&
		memo.Node == r.Node && memo.Index == index {
		accum = memo.Accum
	}

	r.clearWarning()
	r.Gathering = &GatheringState{
		Node:          r.Node,
		Index:         index,
		Accum:         accum,
		TicksRequired: g.ticksRequired(cfg.BaseTicks, g.EffectiveLevel(r, cfg.Skill)),
		Phase:         PhaseActive,
	}
	g.bus.Publish(protocol.GatheringStarted{
		Tick: nowTick, RunnerID: r.ID, Node: r.Node, Gatherable: index, Item: cfg.Item,
	})
	return true
}

// advanceGathering runs one tick of work: re-evaluate micro rules, grant
// the gatherable's XP (every tick, whether or not an item completes; XP
// rate and production rate are decoupled), then advance the accumulator
// and possibly produce one item.
func (g *GameState) advanceGathering(r *Runner, nowTick uint64) {
	gs := r.Gathering
	node := g.Map.GetNode(gs.Node)
	if node == nil || gs.Index < 0 || gs.Index >= len(node.Gatherables) {
		g.failGathering(r, gs.Index, protocol.ErrBadGatherableIdx, nowTick)
		return
	}
	cfg := node.Gatherables[gs.Index]

	// Micro rules run while working. A switch of gather target applies
	// only at an item boundary so mid-item resource switches never
	// happen; finish-step applies immediately.
	if microID, ok := g.currentWorkRuleset(r); ok {
		if !g.applyMicroWhileWorking(r, microID, nowTick) {
			return
		}
		gs = r.Gathering
		if gs == nil || gs.Phase != PhaseActive {
			return
		}
		// The micro layer may have switched targets at an item boundary.
		cfg = node.Gatherables[gs.Index]
	}

	g.grantXP(r, cfg.Skill, cfg.XPPerTick, nowTick)
	gs = r.Gathering
	if gs == nil || gs.Phase != PhaseActive {
		return
	}

	gs.Accum++
	if gs.Accum+1e-9 < gs.TicksRequired {
		return
	}

	if !r.Inventory.Add(g.catalog, cfg.Item) {
		g.bus.Publish(protocol.InventoryFull{Tick: nowTick, RunnerID: r.ID, Node: gs.Node, Item: cfg.Item})
		g.yieldGathering(r, nowTick)
		return
	}
	gs.Accum = 0
	g.bus.Publish(protocol.ItemProduced{Tick: nowTick, RunnerID: r.ID, Node: gs.Node, Item: cfg.Item})

	// Yield the moment the container cannot take the next unit: waiting
	// for the next item to finish only to discard it would waste a full
	// gather cycle.
	if !r.Inventory.CanAdd(g.catalog, cfg.Item) {
		g.bus.Publish(protocol.InventoryFull{Tick: nowTick, RunnerID: r.ID, Node: gs.Node, Item: cfg.Item})
		g.yieldGathering(r, nowTick)
	}
}

// currentWorkRuleset returns the micro ruleset id of the active Work step,
// if the runner is executing one. Manual CommandGather has no micro layer.
func (g *GameState) currentWorkRuleset(r *Runner) (string, bool) {
	seq := g.activeSequence(r)
	if seq == nil || r.StepIndex >= len(seq.Steps) {
		return "", false
	}
	step := seq.Steps[r.StepIndex]
	if step.Kind != sequences.StepWork {
		return "", false
	}
	return step.MicroRuleset, true
}

// applyMicroWhileWorking re-evaluates the micro ruleset mid-work. Returns
// false when control left the gathering state (finish-step or stuck).
func (g *GameState) applyMicroWhileWorking(r *Runner, microID string, nowTick uint64) bool {
	rs := g.MicroRulesets[microID]
	if rs == nil {
		g.stuckConfig(r, protocol.ErrUnknownRuleset, "micro ruleset "+microID+" does not exist", nowTick)
		return false
	}
	idx, ok := rules.Evaluate(rs, g.contextFor(r))
	if !ok {
		g.stuckNoMicroRule(r, rs, nowTick)
		return false
	}
	rule := rs.Rules[idx]
	gs := r.Gathering

	switch rule.Action.Kind {
	case rules.ActFinishStep:
		g.publishMicroFired(r, rs, idx, nowTick)
		r.Gathering = nil
		g.AdvanceStep(r, nowTick)
		return false
	case rules.ActGatherIndex:
		if gs.Accum == 0 && rule.Action.Gatherable != gs.Index {
			g.publishMicroFired(r, rs, idx, nowTick)
			r.Gathering = nil
			if !g.startGathering(r, rule.Action.Gatherable, nowTick) {
				return false
			}
		}
		return true
	case rules.ActGatherAny:
		if gs.Accum == 0 {
			if target, found := g.pickGatherable(r); found && target != gs.Index {
				g.publishMicroFired(r, rs, idx, nowTick)
				r.Gathering = nil
				if !g.startGathering(r, target, nowTick) {
					return false
				}
			}
		}
		return true
	default:
		return true
	}
}

// yieldGathering hands control back to the task-sequence layer after an
// inventory-full completion, keeping the gathering state as a memo of what
// to resume after the deposit round-trip.
func (g *GameState) yieldGathering(r *Runner, nowTick uint64) {
	if g.hasActiveCycle(r) {
		r.Gathering.Phase = PhaseToDeposit
		g.AdvanceStep(r, nowTick)
		return
	}
	// Manual gathering with nowhere to go: stop.
	r.Gathering = nil
}

// failGathering reports a precondition failure. No state is entered; the
// runner parks idle with a visible warning for the automation layer or the
// player to resolve.
func (g *GameState) failGathering(r *Runner, index int, reason string, nowTick uint64) {
	g.bus.Publish(protocol.GatheringFailed{
		Tick: nowTick, RunnerID: r.ID, Node: r.Node, Gatherable: index, Reason: reason,
	})
	r.Gathering = nil
	r.SequenceID = ""
	r.StepIndex = 0
	r.Pending = nil
	r.ActiveWarning = fmt.Sprintf("cannot gather at %s: %s", r.Node, reason)
}

// stuckNoMicroRule handles the "no micro rule matched" failure.
func (g *GameState) stuckNoMicroRule(r *Runner, rs *rules.Ruleset, nowTick uint64) {
	g.bus.Publish(protocol.NoRuleMatched{Tick: nowTick, RunnerID: r.ID, Node: r.Node, Layer: protocol.LayerMicro, RulesetID: rs.ID})
	r.Gathering = nil
	r.SequenceID = ""
	r.StepIndex = 0
	r.Pending = nil
	r.ActiveWarning = "no micro rule matched in ruleset " + rs.ID
	g.bus.Publish(protocol.RunnerStuck{Tick: nowTick, RunnerID: r.ID, Node: r.Node, Reason: protocol.ErrNoRuleMatched, Detail: r.ActiveWarning})
}

// stuckConfig handles data-configuration errors: the runner parks idle
// with a warning and the rest of the simulation continues unaffected.
func (g *GameState) stuckConfig(r *Runner, reason, detail string, nowTick uint64) {
	alreadyStuck := r.ActiveWarning == detail
	r.Gathering = nil
	r.SequenceID = ""
	r.StepIndex = 0
	r.Pending = nil
	r.ActiveWarning = detail
	if !alreadyStuck {
		g.bus.Publish(protocol.RunnerStuck{Tick: nowTick, RunnerID: r.ID, Node: r.Node, Reason: reason, Detail: detail})
	}
}

func (g *GameState) publishMicroFired(r *Runner, rs *rules.Ruleset, idx int, nowTick uint64) {
	rule := rs.Rules[idx]
	g.bus.Publish(protocol.RuleFired{
		Tick:       nowTick,
		RunnerID:   r.ID,
		Node:       r.Node,
		Layer:      protocol.LayerMicro,
		RulesetID:  rs.ID,
		RuleIndex:  idx,
		RuleLabel:  rule.Label,
		Action:     rule.Action.String(),
		Conditions: rules.Describe(rule.Conditions, g.contextFor(r)),
	})
}
