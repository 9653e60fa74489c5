package world

import (
	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/items"
	"runnerkeep.gg/internal/sim/skills"
	"runnerkeep.gg/internal/sim/worldmap"
)

type Skill struct {
	Level   int     `json:"level"`
	XP      float64 `json:"xp"` // accumulated toward the next level
	Passion bool    `json:"passion,omitempty"`
}

// Runner is an autonomous agent. Exactly one of the three activity
// pointers is set at any time; all nil means Idle.
type Runner struct {
	ID   string
	Name string
	Node string // current node id; meaningful only when not traveling

	Skills    map[skills.ID]*Skill
	Inventory *items.Inventory

	Travel     *TravelState
	Gathering  *GatheringState
	Depositing *DepositingState

	// Task sequence reference (shared template by id) and live cursor.
	SequenceID string
	StepIndex  int

	// Deferred macro reassignment, applied at the next loop boundary.
	Pending *PendingAssign

	MacroRulesetID string

	// ActiveWarning is the single human-visible "this runner is stuck"
	// string. Set only by gathering-precondition failures and
	// no-micro-rule-matched; cleared on any productive transition.
	ActiveWarning string
}

type PendingAssign struct {
	SequenceID string // empty means "clear sequence"
	Clear      bool
}

type TravelState struct {
	From    string
	To      string
	Total   float64
	Covered float64
	// VirtualStart is set only when this leg began as a mid-flight
	// redirect; it overrides From's position when interpolating.
	VirtualStart *worldmap.Vec2
}

func (t *TravelState) Progress() float64 {
	if t.Total <= 0 {
		return 1
	}
	p := t.Covered / t.Total
	if p > 1 {
		return 1
	}
	return p
}

type GatherPhase string

const (
	PhaseActive    GatherPhase = "ACTIVE"
	PhaseToDeposit GatherPhase = "TO_DEPOSIT"
	PhaseReturning GatherPhase = "RETURNING"
)

// GatheringState counts ticks toward the next produced item. When the
// phase is not ACTIVE the runner's activity is travel or deposit and this
// state survives only as the memo of which gatherable to resume.
type GatheringState struct {
	Node          string
	Index         int
	Accum         float64
	TicksRequired float64
	Phase         GatherPhase
}

type DepositingState struct {
	Node           string
	TicksRemaining int
}

// State derives the runner's single activity state.
func (r *Runner) State() protocol.AgentState {
	switch {
	case r.Travel != nil:
		return protocol.StateTraveling
	case r.Depositing != nil:
		return protocol.StateDepositing
	case r.Gathering != nil && r.Gathering.Phase == PhaseActive:
		return protocol.StateGathering
	default:
		return protocol.StateIdle
	}
}

func (r *Runner) skill(id skills.ID) *Skill {
	s := r.Skills[id]
	if s == nil {
		s = &Skill{Level: 1}
		r.Skills[id] = s
	}
	return s
}

func (r *Runner) clearWarning() { r.ActiveWarning = "" }

func newRunner(id, name, node string, inventorySlots int) *Runner {
	r := &Runner{
		ID:        id,
		Name:      name,
		Node:      node,
		Skills:    make(map[skills.ID]*Skill, len(skills.All())),
		Inventory: items.NewInventory(inventorySlots),
		StepIndex: 0,
	}
	for _, id := range skills.All() {
		r.Skills[id] = &Skill{Level: 1}
	}
	return r
}
