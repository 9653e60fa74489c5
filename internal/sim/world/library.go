package world

import (
	"fmt"

	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/rules"
	"runnerkeep.gg/internal/sim/sequences"
)

// AddSequence stores a template in the shared library. A structurally
// identical template already in the library is reused (its id is returned)
// so that edits to one logical work-loop propagate to every runner using
// it, instead of silently duplicating.
func (g *GameState) AddSequence(seq *sequences.Sequence) string {
	for id, existing := range g.Sequences {
		if sequences.StructuralEqual(existing, seq) {
			return id
		}
	}
	if seq.ID == "" {
		g.nextSeqNum++
		seq.ID = fmt.Sprintf("SEQ%03d", g.nextSeqNum)
	}
	g.Sequences[seq.ID] = seq
	return seq.ID
}

// CloneSequence deep-copies a template under a fresh id, for callers that
// want edits to stop propagating.
func (g *GameState) CloneSequence(id string) (string, error) {
	seq := g.Sequences[id]
	if seq == nil {
		return "", fmt.Errorf("world: %s: sequence %q", protocol.ErrUnknownSequence, id)
	}
	g.nextSeqNum++
	cloneID := fmt.Sprintf("SEQ%03d", g.nextSeqNum)
	g.Sequences[cloneID] = seq.Clone(cloneID)
	return cloneID, nil
}

// RemoveSequence deletes a template and detaches every runner referencing it.
func (g *GameState) RemoveSequence(id string) {
	if _, ok := g.Sequences[id]; !ok {
		return
	}
	delete(g.Sequences, id)
	for _, r := range g.Runners {
		if r.SequenceID == id {
			g.clearSequenceNow(r, g.tick)
		}
		if p := r.Pending; p != nil && p.SequenceID == id {
			r.Pending = nil
		}
	}
}

// InsertStep inserts a step at index, atomically shifting the live cursor
// of every runner referencing the sequence: inserting at or before the
// current step pushes the cursor forward so the runner stays on the same
// logical step.
func (g *GameState) InsertStep(seqID string, index int, step sequences.Step) error {
	seq := g.Sequences[seqID]
	if seq == nil {
		return fmt.Errorf("world: %s: sequence %q", protocol.ErrUnknownSequence, seqID)
	}
	if index < 0 || index > len(seq.Steps) {
		return fmt.Errorf("world: insert index %d out of range [0,%d]", index, len(seq.Steps))
	}
	seq.Steps = append(seq.Steps, sequences.Step{})
	copy(seq.Steps[index+1:], seq.Steps[index:])
	seq.Steps[index] = step

	for _, r := range g.Runners {
		if r.SequenceID != seqID {
			continue
		}
		if index <= r.StepIndex {
			r.StepIndex++
		}
	}
	return nil
}

// RemoveStep removes the step at index. Runners whose cursor sat on the
// removed step slide to the next valid index; runners past it shift back
// by one. A sequence left empty forces its runners to Idle.
func (g *GameState) RemoveStep(seqID string, index int) error {
	seq := g.Sequences[seqID]
	if seq == nil {
		return fmt.Errorf("world: %s: sequence %q", protocol.ErrUnknownSequence, seqID)
	}
	if index < 0 || index >= len(seq.Steps) {
		return fmt.Errorf("world: remove index %d out of range [0,%d)", index, len(seq.Steps))
	}
	seq.Steps = append(seq.Steps[:index], seq.Steps[index+1:]...)

	for _, r := range g.Runners {
		if r.SequenceID != seqID {
			continue
		}
		if len(seq.Steps) == 0 {
			g.forceIdle(r)
			continue
		}
		switch {
		case index < r.StepIndex:
			r.StepIndex--
		case index == r.StepIndex:
			// Cursor slides onto the next step; clamp a cursor that fell
			// off the end of a looping sequence back to the start.
			g.stopActivity(r)
			if r.StepIndex >= len(seq.Steps) && seq.Loop {
				r.StepIndex = 0
			}
		}
	}
	return nil
}

// MoveStep relocates a step from one index to another. A cursor on the
// moved step follows it; a cursor the step jumped across shifts by one in
// the corresponding direction.
func (g *GameState) MoveStep(seqID string, from, to int) error {
	seq := g.Sequences[seqID]
	if seq == nil {
		return fmt.Errorf("world: %s: sequence %q", protocol.ErrUnknownSequence, seqID)
	}
	n := len(seq.Steps)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("world: move %d->%d out of range [0,%d)", from, to, n)
	}
	if from == to {
		return nil
	}
	step := seq.Steps[from]
	rest := append(seq.Steps[:from], seq.Steps[from+1:]...)
	rest = append(rest, sequences.Step{})
	copy(rest[to+1:], rest[to:])
	rest[to] = step
	seq.Steps = rest

	for _, r := range g.Runners {
		if r.SequenceID != seqID {
			continue
		}
		switch {
		case r.StepIndex == from:
			r.StepIndex = to
		case from < r.StepIndex && to >= r.StepIndex:
			r.StepIndex--
		case from > r.StepIndex && to <= r.StepIndex:
			r.StepIndex++
		}
	}
	return nil
}

// RegisterMacroRuleset and RegisterMicroRuleset store rulesets in their
// libraries, replacing any entry with the same id.
func (g *GameState) RegisterMacroRuleset(rs *rules.Ruleset) { g.MacroRulesets[rs.ID] = rs }
func (g *GameState) RegisterMicroRuleset(rs *rules.Ruleset) { g.MicroRulesets[rs.ID] = rs }

// stopActivity cancels whatever the runner is doing without touching its
// sequence reference.
func (g *GameState) stopActivity(r *Runner) {
	r.Travel = nil
	r.Gathering = nil
	r.Depositing = nil
}

func (g *GameState) forceIdle(r *Runner) {
	g.stopActivity(r)
	r.StepIndex = 0
}
