package world

import (
	"fmt"

	"runnerkeep.gg/internal/protocol"
)

// Command API: the only mutation surface besides Tick. Presentation
// layers must go through these, never through direct field writes.

func errUnknownRunner(id string) error {
	return fmt.Errorf("world: %s: runner %q", protocol.ErrUnknownRunner, id)
}

// CommandTravel sends the runner toward a node. Issued mid-travel it
// redirects (replaces the travel state) rather than queueing.
func (g *GameState) CommandTravel(runnerID, nodeID string) error {
	r := g.RunnerByID(runnerID)
	if r == nil {
		return errUnknownRunner(runnerID)
	}
	if g.Map.GetNode(nodeID) == nil {
		return fmt.Errorf("world: %s: node %q", protocol.ErrUnknownNode, nodeID)
	}
	g.startTravel(r, nodeID, g.tick)
	return nil
}

// CommandGather starts gathering the indexed gatherable at the runner's
// current node. Precondition failures surface as events, not errors.
func (g *GameState) CommandGather(runnerID string, gatherableIndex int) error {
	r := g.RunnerByID(runnerID)
	if r == nil {
		return errUnknownRunner(runnerID)
	}
	if r.Travel != nil {
		return fmt.Errorf("world: runner %q is traveling", runnerID)
	}
	r.Depositing = nil
	g.startGathering(r, gatherableIndex, g.tick)
	return nil
}

// CommandDeposit starts the fixed-duration deposit activity in place.
func (g *GameState) CommandDeposit(runnerID string) error {
	r := g.RunnerByID(runnerID)
	if r == nil {
		return errUnknownRunner(runnerID)
	}
	if r.Travel != nil {
		return fmt.Errorf("world: runner %q is traveling", runnerID)
	}
	if gs := r.Gathering; gs != nil && gs.Phase == PhaseActive {
		gs.Phase = PhaseToDeposit
	}
	g.startDeposit(r, g.tick)
	return nil
}

// AssignRunner points the runner at a library sequence, resetting its
// cursor and immediately executing zero-time steps.
func (g *GameState) AssignRunner(runnerID, sequenceID string) error {
	r := g.RunnerByID(runnerID)
	if r == nil {
		return errUnknownRunner(runnerID)
	}
	if g.Sequences[sequenceID] == nil {
		return fmt.Errorf("world: %s: sequence %q", protocol.ErrUnknownSequence, sequenceID)
	}
	g.assignSequenceNow(r, sequenceID, g.tick)
	return nil
}

// ClearAssignment detaches the runner from its sequence and idles it.
func (g *GameState) ClearAssignment(runnerID string) error {
	r := g.RunnerByID(runnerID)
	if r == nil {
		return errUnknownRunner(runnerID)
	}
	g.clearSequenceNow(r, g.tick)
	return nil
}

// SetMacroRuleset attaches (or with an empty id detaches) the macro
// ruleset evaluated for this runner every tick.
func (g *GameState) SetMacroRuleset(runnerID, rulesetID string) error {
	r := g.RunnerByID(runnerID)
	if r == nil {
		return errUnknownRunner(runnerID)
	}
	if rulesetID != "" && g.MacroRulesets[rulesetID] == nil {
		return fmt.Errorf("world: %s: ruleset %q", protocol.ErrUnknownRuleset, rulesetID)
	}
	r.MacroRulesetID = rulesetID
	return nil
}
