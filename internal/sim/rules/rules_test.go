package rules

import (
	"testing"

	"runnerkeep.gg/internal/protocol"
)

// fakeContext implements Context with fixed values.
type fakeContext struct {
	full  bool
	free  int
	inv   map[string]int
	bank  map[string]int
	skill map[string]int
	state protocol.AgentState
	node  string
}

func (f *fakeContext) InventoryIsFull() bool              { return f.full }
func (f *fakeContext) FreeSlots() int                     { return f.free }
func (f *fakeContext) InventoryCount(item string) int     { return f.inv[item] }
func (f *fakeContext) BankCount(item string) int          { return f.bank[item] }
func (f *fakeContext) SkillLevel(skill string) int        { return f.skill[skill] }
func (f *fakeContext) AgentState() protocol.AgentState    { return f.state }
func (f *fakeContext) CurrentNode() string                { return f.node }

func TestEvaluate_FirstMatchWins(t *testing.T) {
	rs := &Ruleset{ID: "rs", Rules: []Rule{
		{Label: "specific", Enabled: true, Conditions: []Condition{
			{Kind: CondBankCount, Item: "LOG", Op: CmpGE, Value: 100},
		}},
		{Label: "general", Enabled: true}, // empty conditions: always true
	}}
	ctx := &fakeContext{bank: map[string]int{"LOG": 150}}
	if i, ok := Evaluate(rs, ctx); !ok || i != 0 {
		t.Fatalf("Evaluate = %d,%v want 0,true", i, ok)
	}

	ctx.bank["LOG"] = 10
	if i, ok := Evaluate(rs, ctx); !ok || i != 1 {
		t.Fatalf("Evaluate = %d,%v want general fallback at 1", i, ok)
	}
}

func TestEvaluate_DisabledRulesSkipped(t *testing.T) {
	rs := &Ruleset{Rules: []Rule{
		{Label: "off", Enabled: false},
		{Label: "on", Enabled: true},
	}}
	if i, ok := Evaluate(rs, &fakeContext{}); !ok || i != 1 {
		t.Fatalf("Evaluate = %d,%v want 1,true", i, ok)
	}
}

func TestEvaluate_ConditionsAreANDComposed(t *testing.T) {
	rs := &Ruleset{Rules: []Rule{{
		Label: "both", Enabled: true,
		Conditions: []Condition{
			{Kind: CondAtNode, Node: "forest"},
			{Kind: CondFreeSlots, Op: CmpGT, Value: 0},
		},
	}}}
	ctx := &fakeContext{node: "forest", free: 0}
	if _, ok := Evaluate(rs, ctx); ok {
		t.Fatalf("matched with one condition false")
	}
	ctx.free = 3
	if i, ok := Evaluate(rs, ctx); !ok || i != 0 {
		t.Fatalf("Evaluate = %d,%v want 0,true", i, ok)
	}
}

func TestEvaluate_NoMatch(t *testing.T) {
	rs := &Ruleset{Rules: []Rule{{
		Label: "unreachable", Enabled: true,
		Conditions: []Condition{{Kind: CondInventoryCount, Item: "GEM", Op: CmpGE, Value: 999}},
	}}}
	if i, ok := Evaluate(rs, &fakeContext{inv: map[string]int{}}); ok || i != -1 {
		t.Fatalf("Evaluate = %d,%v want -1,false", i, ok)
	}
}

func TestEvaluate_CombatPlaceholderAlwaysFalse(t *testing.T) {
	rs := &Ruleset{Rules: []Rule{{
		Label: "combat", Enabled: true,
		Conditions: []Condition{{Kind: CondInCombat}},
	}}}
	if _, ok := Evaluate(rs, &fakeContext{}); ok {
		t.Fatalf("combat placeholder matched")
	}
}

func TestComparison_EpsilonEquality(t *testing.T) {
	if !CmpEQ.Holds(10.0000000001, 10) {
		t.Fatalf("EQ should tolerate drift within epsilon")
	}
	if CmpEQ.Holds(10.1, 10) {
		t.Fatalf("EQ matched well outside epsilon")
	}
	if CmpNE.Holds(10.0000000001, 10) {
		t.Fatalf("NE matched inside epsilon")
	}
	if !CmpGE.Holds(9.9999999999, 10) {
		t.Fatalf("GE should tolerate drift within epsilon")
	}
}

func TestComparison_Relational(t *testing.T) {
	cases := []struct {
		op   Comparison
		a, b float64
		want bool
	}{
		{CmpLT, 1, 2, true},
		{CmpLT, 2, 2, false},
		{CmpLE, 2, 2, true},
		{CmpGT, 3, 2, true},
		{CmpGT, 2, 2, false},
		{CmpGE, 2, 2, true},
		{CmpNE, 1, 2, true},
	}
	for _, c := range cases {
		if got := c.op.Holds(c.a, c.b); got != c.want {
			t.Fatalf("%s.Holds(%v,%v) = %v want %v", c.op, c.a, c.b, got, c.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	ctx := &fakeContext{bank: map[string]int{"LOG": 5}, node: "hub"}
	got := Describe([]Condition{
		{Kind: CondBankCount, Item: "LOG", Op: CmpLT, Value: 10},
		{Kind: CondAtNode, Node: "hub"},
	}, ctx)
	want := "bank LOG 5 LT 10 AND at hub"
	if got != want {
		t.Fatalf("Describe = %q want %q", got, want)
	}
	if Describe(nil, ctx) != "always" {
		t.Fatalf("empty conditions should describe as always")
	}
}
