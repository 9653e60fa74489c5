package world

import (
	"math"

	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/skills"
	"runnerkeep.gg/internal/sim/tuning"
)

// EffectiveLevel is the raw level adjusted by the passion multiplier,
// floored, never below 1.
func (g *GameState) EffectiveLevel(r *Runner, id skills.ID) int {
	s := r.skill(id)
	lvl := float64(s.Level)
	if s.Passion {
		lvl *= g.cfg.Skills.PassionMultiplier
	}
	eff := int(math.Floor(lvl))
	if eff < 1 {
		eff = 1
	}
	return eff
}

// grantXP adds XP toward the next level. The threshold to leave level N is
// xp_per_level × N, so the curve stays linear per level. Level-ups publish
// an event and re-derive any level-dependent cached values.
func (g *GameState) grantXP(r *Runner, id skills.ID, xp float64, nowTick uint64) {
	if xp <= 0 {
		return
	}
	s := r.skill(id)
	s.XP += xp
	leveled := false
	for s.XP >= g.cfg.Skills.XPPerLevel*float64(s.Level) {
		s.XP -= g.cfg.Skills.XPPerLevel * float64(s.Level)
		s.Level++
		leveled = true
		g.bus.Publish(protocol.SkillLevelUp{Tick: nowTick, RunnerID: r.ID, Skill: string(id), Level: s.Level})
	}
	if leveled {
		g.onEffectiveLevelChanged(r, id)
	}
}

// SetPassion toggles the passion flag, which changes effective level and
// therefore gathering/travel speed immediately.
func (g *GameState) SetPassion(runnerID string, id skills.ID, passion bool) error {
	r := g.RunnerByID(runnerID)
	if r == nil {
		return errUnknownRunner(runnerID)
	}
	s := r.skill(id)
	if s.Passion == passion {
		return nil
	}
	s.Passion = passion
	g.onEffectiveLevelChanged(r, id)
	return nil
}

// onEffectiveLevelChanged re-derives cached speed values that depend on
// the effective level of the given skill.
func (g *GameState) onEffectiveLevelChanged(r *Runner, id skills.ID) {
	gs := r.Gathering
	if gs == nil {
		return
	}
	node := g.Map.GetNode(gs.Node)
	if node == nil || gs.Index < 0 || gs.Index >= len(node.Gatherables) {
		return
	}
	cfg := node.Gatherables[gs.Index]
	if cfg.Skill != id {
		return
	}
	gs.TicksRequired = g.ticksRequired(cfg.BaseTicks, g.EffectiveLevel(r, cfg.Skill))
}

// ticksRequired computes how many ticks one item takes to gather at the
// given effective level.
func (g *GameState) ticksRequired(baseTicks float64, effectiveLevel int) float64 {
	return (g.cfg.Gather.GlobalSpeedMultiplier * baseTicks) / g.speedMultiplier(effectiveLevel)
}

func (g *GameState) speedMultiplier(effectiveLevel int) float64 {
	lvl := float64(effectiveLevel)
	switch g.cfg.Gather.Formula {
	case tuning.FormulaPowerCurve:
		return math.Pow(lvl, g.cfg.Gather.PowerCurveExponent)
	default: // FormulaHyperbolic
		return 1 + (lvl-1)*g.cfg.Gather.HyperbolicPerLevel
	}
}

// travelSpeed is distance covered per simulated second.
func (g *GameState) travelSpeed(r *Runner) float64 {
	eff := g.EffectiveLevel(r, skills.Athletics)
	return g.cfg.Travel.BaseSpeed + g.cfg.Travel.AthleticsSpeedPerLevel*float64(eff-1)
}
