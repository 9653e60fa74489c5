// Package sequences holds the flat task-step data types shared between the
// scheduler in world and the authoring layer. Steps are kind-tagged structs,
// not interfaces, so sequences serialize as plain JSON.
package sequences

type StepKind string

const (
	StepTravelTo StepKind = "TRAVEL_TO"
	StepWork     StepKind = "WORK"
	StepDeposit  StepKind = "DEPOSIT"
)

type Step struct {
	Kind StepKind `json:"kind"`
	// TRAVEL_TO
	Node string `json:"node,omitempty"`
	// WORK
	MicroRuleset string `json:"micro_ruleset,omitempty"`
}

// Sequence is an ordered, possibly looping step list. Sequences live in a
// shared id-keyed library; multiple runners referencing the same id share
// one template, so edits propagate.
type Sequence struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Loop  bool   `json:"loop"`
	Steps []Step `json:"steps"`
}

// Clone deep-copies a sequence under a fresh id, for explicit
// clone-for-independence.
func (s *Sequence) Clone(newID string) *Sequence {
	out := &Sequence{ID: newID, Name: s.Name, Loop: s.Loop}
	out.Steps = append([]Step(nil), s.Steps...)
	return out
}

// StructuralEqual compares two sequences by content (steps + loop flag),
// ignoring id and name. The library uses it to reuse an existing template
// when an identical sequence is assigned.
func StructuralEqual(a, b *Sequence) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Loop != b.Loop || len(a.Steps) != len(b.Steps) {
		return false
	}
	for i := range a.Steps {
		if a.Steps[i] != b.Steps[i] {
			return false
		}
	}
	return true
}
