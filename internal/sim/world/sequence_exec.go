package world

import (
	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/sequences"
)

func (g *GameState) activeSequence(r *Runner) *sequences.Sequence {
	if r.SequenceID == "" {
		return nil
	}
	return g.Sequences[r.SequenceID]
}

// hasActiveCycle reports whether the runner has a sequence with work left
// to finish (a parked or empty sequence counts as none).
func (g *GameState) hasActiveCycle(r *Runner) bool {
	seq := g.activeSequence(r)
	if seq == nil || len(seq.Steps) == 0 {
		return false
	}
	return seq.Loop || r.StepIndex < len(seq.Steps)
}

// sequenceParked reports a non-looping sequence whose cursor ran past the
// end: the runner is effectively idle.
func (g *GameState) sequenceParked(r *Runner) bool {
	seq := g.activeSequence(r)
	if seq == nil {
		return true
	}
	return len(seq.Steps) == 0 || (!seq.Loop && r.StepIndex >= len(seq.Steps))
}

// assignSequenceNow replaces the runner's sequence, resets the cursor, and
// immediately executes zero-time steps until one that takes time.
func (g *GameState) assignSequenceNow(r *Runner, seqID string, nowTick uint64) {
	r.Pending = nil
	r.SequenceID = seqID
	r.StepIndex = 0
	r.Gathering = nil
	r.Depositing = nil
	r.clearWarning()
	g.bus.Publish(protocol.SequenceAssigned{Tick: nowTick, RunnerID: r.ID, SequenceID: seqID})
	g.beginCurrentStep(r, nowTick)
}

func (g *GameState) clearSequenceNow(r *Runner, nowTick uint64) {
	r.SequenceID = ""
	r.StepIndex = 0
	r.Pending = nil
	r.Travel = nil
	r.Gathering = nil
	r.Depositing = nil
	r.clearWarning()
	g.bus.Publish(protocol.SequenceCleared{Tick: nowTick, RunnerID: r.ID})
}

// beginCurrentStep executes the runner's current step, skipping steps that
// take no time (a TravelTo whose target is the current node) until a step
// that does, a boundary, or a stuck condition. The hop cap bounds fully
// zero-time looping sequences to one pass per tick.
func (g *GameState) beginCurrentStep(r *Runner, nowTick uint64) {
	seq := g.activeSequence(r)
	if seq == nil {
		if r.SequenceID != "" {
			// Library entry vanished under the runner.
			g.stuckConfig(r, protocol.ErrUnknownSequence, "task sequence "+r.SequenceID+" does not exist", nowTick)
		}
		return
	}

	for hops := 0; hops <= len(seq.Steps)+1; hops++ {
		if r.StepIndex >= len(seq.Steps) {
			if !g.atSequenceBoundary(r, seq, nowTick) {
				return
			}
			seq = g.activeSequence(r)
			if seq == nil {
				return
			}
			continue
		}

		step := seq.Steps[r.StepIndex]
		switch step.Kind {
		case sequences.StepTravelTo:
			if r.Travel == nil && r.Node == step.Node {
				// Already there: zero-time skip, no travel event.
				r.StepIndex++
				continue
			}
			if g.Map.GetNode(step.Node) == nil {
				g.stuckConfig(r, protocol.ErrUnknownNode, "sequence step targets unknown node "+step.Node, nowTick)
				return
			}
			g.startTravel(r, step.Node, nowTick)
			return
		case sequences.StepWork:
			if r.Travel != nil {
				// Mid-leg: the runner stays a traveler until arrival,
				// which re-enters this step at the real node.
				return
			}
			switch g.beginWorkStep(r, step.MicroRuleset, nowTick) {
			case workStarted:
				return
			case workFinished:
				r.StepIndex++
				continue
			default: // workStuck
				return
			}
		case sequences.StepDeposit:
			if r.Travel != nil {
				return
			}
			g.startDeposit(r, nowTick)
			return
		default:
			g.stuckConfig(r, protocol.ErrBadStep, "sequence has unknown step kind "+string(step.Kind), nowTick)
			return
		}
	}
}

// atSequenceBoundary handles the cursor reaching the end of the step list:
// apply any pending reassignment, wrap a looping sequence, or complete and
// park a non-looping one. Returns true when execution should continue with
// the (possibly new) current step.
func (g *GameState) atSequenceBoundary(r *Runner, seq *sequences.Sequence, nowTick uint64) bool {
	if r.Pending != nil {
		p := r.Pending
		r.Pending = nil
		if p.Clear {
			g.clearSequenceNow(r, nowTick)
			return false
		}
		g.assignSequenceNow(r, p.SequenceID, nowTick)
		return false
	}
	if len(seq.Steps) == 0 {
		return false // zero steps: effectively idle
	}
	if seq.Loop {
		r.StepIndex = 0
		return true
	}
	// Non-looping: park past the end and report completion once.
	if r.StepIndex == len(seq.Steps) {
		g.bus.Publish(protocol.SequenceCompleted{Tick: nowTick, RunnerID: r.ID, SequenceID: seq.ID})
		r.StepIndex = len(seq.Steps) + 1
	}
	return false
}

// onTravelStepArrived runs after an arrival event while a sequence is
// active: if the finished leg was the current TravelTo step, advance past
// it and immediately continue with the next step.
func (g *GameState) onTravelStepArrived(r *Runner, nowTick uint64) {
	seq := g.activeSequence(r)
	if seq == nil || g.sequenceParked(r) {
		return
	}
	if r.StepIndex < len(seq.Steps) {
		step := seq.Steps[r.StepIndex]
		if step.Kind == sequences.StepTravelTo && step.Node == r.Node {
			r.StepIndex++
		}
	}
	g.beginCurrentStep(r, nowTick)
}

// AdvanceStep moves the cursor forward one step and executes from there.
func (g *GameState) AdvanceStep(r *Runner, nowTick uint64) {
	if g.activeSequence(r) == nil {
		return
	}
	r.StepIndex++
	g.beginCurrentStep(r, nowTick)
}
