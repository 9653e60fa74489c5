package rules

import (
	"strconv"

	"runnerkeep.gg/internal/protocol"
)

// Context is the read-only snapshot of world + agent state a condition
// evaluates against. The world package implements it per runner per tick.
type Context interface {
	InventoryIsFull() bool
	FreeSlots() int
	InventoryCount(item string) int
	BankCount(item string) int
	SkillLevel(skill string) int
	AgentState() protocol.AgentState
	CurrentNode() string
}

// Evaluate returns the index of the first enabled rule whose conditions all
// hold, or (-1, false) when nothing matches. It has no side effects and no
// memoization: every call recomputes from scratch.
func Evaluate(rs *Ruleset, ctx Context) (int, bool) {
	if rs == nil {
		return -1, false
	}
	for i := range rs.Rules {
		r := &rs.Rules[i]
		if !r.Enabled {
			continue
		}
		if conditionsHold(r.Conditions, ctx) {
			return i, true
		}
	}
	return -1, false
}

func conditionsHold(conds []Condition, ctx Context) bool {
	for _, c := range conds {
		if !conditionHolds(c, ctx) {
			return false
		}
	}
	return true
}

func conditionHolds(c Condition, ctx Context) bool {
	switch c.Kind {
	case CondAlways:
		return true
	case CondInventoryFull:
		return ctx.InventoryIsFull()
	case CondFreeSlots:
		return c.Op.Holds(float64(ctx.FreeSlots()), c.Value)
	case CondInventoryCount:
		return c.Op.Holds(float64(ctx.InventoryCount(c.Item)), c.Value)
	case CondBankCount:
		return c.Op.Holds(float64(ctx.BankCount(c.Item)), c.Value)
	case CondSkillLevel:
		return c.Op.Holds(float64(ctx.SkillLevel(string(c.Skill))), c.Value)
	case CondAgentState:
		return ctx.AgentState() == c.State
	case CondAtNode:
		return ctx.CurrentNode() == c.Node
	case CondInCombat:
		// Placeholder until combat exists.
		return false
	default:
		// Unknown kinds never match; authoring mistakes surface as a
		// rule that cannot fire rather than a crash.
		return false
	}
}

// Describe renders a one-line human-readable snapshot of why the rule's
// conditions held, for the decision log.
func Describe(conds []Condition, ctx Context) string {
	if len(conds) == 0 {
		return "always"
	}
	out := ""
	for i, c := range conds {
		if i > 0 {
			out += " AND "
		}
		out += describeOne(c, ctx)
	}
	return out
}

func describeOne(c Condition, ctx Context) string {
	switch c.Kind {
	case CondAlways:
		return "always"
	case CondInventoryFull:
		return boolWord("inventory full", ctx.InventoryIsFull())
	case CondFreeSlots:
		return cmpWord("free slots", float64(ctx.FreeSlots()), c.Op, c.Value)
	case CondInventoryCount:
		return cmpWord("inv "+c.Item, float64(ctx.InventoryCount(c.Item)), c.Op, c.Value)
	case CondBankCount:
		return cmpWord("bank "+c.Item, float64(ctx.BankCount(c.Item)), c.Op, c.Value)
	case CondSkillLevel:
		return cmpWord(string(c.Skill), float64(ctx.SkillLevel(string(c.Skill))), c.Op, c.Value)
	case CondAgentState:
		return "state=" + string(ctx.AgentState())
	case CondAtNode:
		return "at " + ctx.CurrentNode()
	case CondInCombat:
		return "in combat (stub)"
	default:
		return string(c.Kind)
	}
}

func boolWord(name string, v bool) string {
	if v {
		return name
	}
	return "not " + name
}

func cmpWord(name string, actual float64, op Comparison, want float64) string {
	return name + " " + trimFloat(actual) + " " + string(op) + " " + trimFloat(want)
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
