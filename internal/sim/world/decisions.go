package world

import (
	"fmt"

	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/decisionlog"
	"runnerkeep.gg/internal/sim/eventbus"
)

// wireDecisionLog subscribes the decision log to the bus. The log never
// calls back into the simulation during dispatch; it only appends.
func (g *GameState) wireDecisionLog() {
	eventbus.Subscribe(g.bus, func(ev protocol.RuleFired) {
		g.Log.Append(decisionlog.Entry{
			Tick:       ev.Tick,
			GameTime:   g.elapsed,
			RunnerID:   ev.RunnerID,
			RunnerName: g.runnerName(ev.RunnerID),
			Node:       ev.Node,
			Layer:      ev.Layer,
			RuleIndex:  ev.RuleIndex,
			RuleLabel:  ev.RuleLabel,
			Reason:     "rule matched",
			Action:     ev.Action,
			Conditions: ev.Conditions,
			Deferred:   ev.Deferred,
		})
	})
	eventbus.Subscribe(g.bus, func(ev protocol.NoRuleMatched) {
		g.Log.Append(decisionlog.Entry{
			Tick:       ev.Tick,
			GameTime:   g.elapsed,
			RunnerID:   ev.RunnerID,
			RunnerName: g.runnerName(ev.RunnerID),
			Node:       ev.Node,
			Layer:      ev.Layer,
			RuleIndex:  -1,
			Reason:     protocol.ErrNoRuleMatched,
			Action:     "park idle",
		})
	})
	eventbus.Subscribe(g.bus, func(ev protocol.RunnerStuck) {
		g.Log.Append(decisionlog.Entry{
			Tick:       ev.Tick,
			GameTime:   g.elapsed,
			RunnerID:   ev.RunnerID,
			RunnerName: g.runnerName(ev.RunnerID),
			Node:       ev.Node,
			RuleIndex:  -1,
			Reason:     ev.Reason,
			Action:     ev.Detail,
		})
	})
	eventbus.Subscribe(g.bus, func(ev protocol.GatheringFailed) {
		g.Log.Append(decisionlog.Entry{
			Tick:        ev.Tick,
			GameTime:    g.elapsed,
			RunnerID:    ev.RunnerID,
			RunnerName:  g.runnerName(ev.RunnerID),
			Node:        ev.Node,
			Layer:       protocol.LayerMicro,
			RuleIndex:   -1,
			Reason:      ev.Reason,
			Action:      fmt.Sprintf("gathering #%d refused", ev.Gatherable),
			CollapseKey: "gatherfail:" + ev.Reason,
		})
	})
	eventbus.Subscribe(g.bus, func(ev protocol.ItemProduced) {
		g.Log.Append(decisionlog.Entry{
			Tick:        ev.Tick,
			GameTime:    g.elapsed,
			RunnerID:    ev.RunnerID,
			RunnerName:  g.runnerName(ev.RunnerID),
			Node:        ev.Node,
			Layer:       protocol.LayerMicro,
			RuleIndex:   -1,
			Reason:      "item produced",
			Action:      "+1 " + ev.Item,
			CollapseKey: "produce:" + ev.Item,
		})
	})
	eventbus.Subscribe(g.bus, func(ev protocol.InventoryFull) {
		g.Log.Append(decisionlog.Entry{
			Tick:       ev.Tick,
			GameTime:   g.elapsed,
			RunnerID:   ev.RunnerID,
			RunnerName: g.runnerName(ev.RunnerID),
			Node:       ev.Node,
			Layer:      protocol.LayerMicro,
			RuleIndex:  -1,
			Reason:     protocol.ErrInventoryFull,
			Action:     "yield to sequence",
		})
	})
	eventbus.Subscribe(g.bus, func(ev protocol.DepositCompleted) {
		g.Log.Append(decisionlog.Entry{
			Tick:       ev.Tick,
			GameTime:   g.elapsed,
			RunnerID:   ev.RunnerID,
			RunnerName: g.runnerName(ev.RunnerID),
			Node:       ev.Node,
			RuleIndex:  -1,
			Reason:     "deposit",
			Action:     fmt.Sprintf("banked %d units (%d kinds)", ev.Units, ev.Stacks),
		})
	})
	eventbus.Subscribe(g.bus, func(ev protocol.SkillLevelUp) {
		g.Log.Append(decisionlog.Entry{
			Tick:        ev.Tick,
			GameTime:    g.elapsed,
			RunnerID:    ev.RunnerID,
			RunnerName:  g.runnerName(ev.RunnerID),
			RuleIndex:   -1,
			Reason:      "level up",
			Action:      fmt.Sprintf("%s -> %d", ev.Skill, ev.Level),
			CollapseKey: "levelup:" + ev.Skill,
		})
	})
	eventbus.Subscribe(g.bus, func(ev protocol.SequenceCompleted) {
		g.Log.Append(decisionlog.Entry{
			Tick:       ev.Tick,
			GameTime:   g.elapsed,
			RunnerID:   ev.RunnerID,
			RunnerName: g.runnerName(ev.RunnerID),
			Layer:      protocol.LayerMacro,
			RuleIndex:  -1,
			Reason:     "sequence completed",
			Action:     "park (end of " + ev.SequenceID + ")",
		})
	})
}

func (g *GameState) runnerName(id string) string {
	if r := g.RunnerByID(id); r != nil {
		return r.Name
	}
	return ""
}
