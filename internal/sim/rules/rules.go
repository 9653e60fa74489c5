// Package rules holds the flat, data-only condition/action model and the
// stateless evaluator shared by the macro and micro automation layers.
// Conditions and actions are kind-tagged structs with a small fixed field
// set rather than interfaces: they serialize as plain JSON and evaluation
// sites switch exhaustively on the kind.
package rules

import (
	"fmt"
	"math"

	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/skills"
)

type ConditionKind string

const (
	CondAlways         ConditionKind = "ALWAYS"
	CondInventoryFull  ConditionKind = "INVENTORY_FULL"
	CondFreeSlots      ConditionKind = "FREE_SLOTS"
	CondInventoryCount ConditionKind = "INVENTORY_COUNT"
	CondBankCount      ConditionKind = "BANK_COUNT"
	CondSkillLevel     ConditionKind = "SKILL_LEVEL"
	CondAgentState     ConditionKind = "AGENT_STATE"
	CondAtNode         ConditionKind = "AT_NODE"
	// CondInCombat always evaluates false; combat does not exist yet.
	CondInCombat ConditionKind = "IN_COMBAT"
)

type Comparison string

const (
	CmpEQ Comparison = "EQ"
	CmpNE Comparison = "NE"
	CmpLT Comparison = "LT"
	CmpLE Comparison = "LE"
	CmpGT Comparison = "GT"
	CmpGE Comparison = "GE"
)

// epsilon absorbs floating-point drift in exact-equality comparisons.
const epsilon = 1e-6

func (c Comparison) Holds(a, b float64) bool {
	switch c {
	case CmpEQ:
		return math.Abs(a-b) <= epsilon
	case CmpNE:
		return math.Abs(a-b) > epsilon
	case CmpLT:
		return a < b
	case CmpLE:
		return a <= b+epsilon
	case CmpGT:
		return a > b
	case CmpGE:
		return a >= b-epsilon
	default:
		return false
	}
}

type Condition struct {
	Kind  ConditionKind        `json:"kind"`
	Item  string               `json:"item,omitempty"`
	Skill skills.ID            `json:"skill,omitempty"`
	Node  string               `json:"node,omitempty"`
	State protocol.AgentState  `json:"state,omitempty"`
	Op    Comparison           `json:"op,omitempty"`
	Value float64              `json:"value,omitempty"`
}

type ActionKind string

const (
	// Macro actions.
	ActAssignSequence ActionKind = "ASSIGN_SEQUENCE"
	ActClearSequence  ActionKind = "CLEAR_SEQUENCE"
	// Micro actions.
	ActGatherIndex ActionKind = "GATHER_INDEX"
	ActGatherAny   ActionKind = "GATHER_ANY"
	ActFinishStep  ActionKind = "FINISH_STEP"
)

type Action struct {
	Kind       ActionKind `json:"kind"`
	Sequence   string     `json:"sequence,omitempty"`
	Gatherable int        `json:"gatherable,omitempty"`
}

func (a Action) String() string {
	switch a.Kind {
	case ActAssignSequence:
		return fmt.Sprintf("assign sequence %s", a.Sequence)
	case ActClearSequence:
		return "clear sequence"
	case ActGatherIndex:
		return fmt.Sprintf("gather #%d", a.Gatherable)
	case ActGatherAny:
		return "gather any"
	case ActFinishStep:
		return "finish step"
	default:
		return string(a.Kind)
	}
}

// Rule is one condition→action pair. Conditions are AND-composed; an
// empty list is vacuously true.
type Rule struct {
	Label       string      `json:"label"`
	Enabled     bool        `json:"enabled"`
	FinishCycle bool        `json:"finish_cycle,omitempty"`
	Conditions  []Condition `json:"conditions"`
	Action      Action      `json:"action"`
}

type Ruleset struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Rules    []Rule `json:"rules"`
}
