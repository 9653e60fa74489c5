package world

import (
	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/skills"
)

// evalContext adapts one runner plus the shared world state into the
// read-only view the rule engine evaluates against.
type evalContext struct {
	g *GameState
	r *Runner
}

func (g *GameState) contextFor(r *Runner) evalContext {
	return evalContext{g: g, r: r}
}

func (c evalContext) InventoryIsFull() bool          { return c.r.Inventory.IsFull() }
func (c evalContext) FreeSlots() int                 { return c.r.Inventory.FreeSlots() }
func (c evalContext) InventoryCount(item string) int { return c.r.Inventory.Count(item) }
func (c evalContext) BankCount(item string) int      { return c.g.Bank.Count(item) }
func (c evalContext) AgentState() protocol.AgentState { return c.r.State() }
func (c evalContext) CurrentNode() string            { return c.r.Node }

func (c evalContext) SkillLevel(skill string) int {
	return c.g.EffectiveLevel(c.r, skills.ID(skill))
}
