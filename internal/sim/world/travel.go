package world

import (
	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/skills"
	"runnerkeep.gg/internal/sim/worldmap"
)

// startTravel begins (or redirects) travel toward node. Starting travel is
// a productive transition, so it clears the active warning.
func (g *GameState) startTravel(r *Runner, to string, nowTick uint64) bool {
	if g.Map.GetNode(to) == nil {
		return false
	}
	if r.Travel != nil {
		g.redirectTravel(r, to, nowTick)
		return true
	}
	if r.Node == to {
		return false // nothing to do; callers treat same-node travel as zero-time
	}
	dist, _, ok := g.Map.FindPath(r.Node, to)
	if !ok {
		return false
	}
	r.clearWarning()
	if r.Gathering != nil && r.Gathering.Phase == PhaseActive {
		r.Gathering = nil
	}
	r.Depositing = nil
	r.Travel = &TravelState{From: r.Node, To: to, Total: dist}
	g.bus.Publish(protocol.TravelStarted{Tick: nowTick, RunnerID: r.ID, From: r.Node, To: to, Distance: dist})
	return true
}

// redirectTravel replaces the in-flight travel state rather than appending
// to it. The runner's current virtual position is interpolated between the
// leg's start (respecting any earlier redirect's virtual start, so chained
// redirects compose) and its destination; travel restarts from that point
// with a fresh straight-line distance.
func (g *GameState) redirectTravel(r *Runner, to string, nowTick uint64) {
	t := r.Travel
	if t.To == to {
		return // redirect to the current target is a no-op
	}
	target := g.Map.GetNode(to)
	if target == nil {
		return
	}

	start := t.VirtualStart
	if start == nil {
		if from := g.Map.GetNode(t.From); from != nil {
			start = &from.Pos
		}
	}
	end := g.Map.GetNode(t.To)
	if start == nil || end == nil {
		return
	}
	p := t.Progress()
	virtual := worldmap.Vec2{
		X: start.X + (end.Pos.X-start.X)*p,
		Y: start.Y + (end.Pos.Y-start.Y)*p,
	}

	oldTo := t.To
	t.VirtualStart = &virtual
	t.To = to
	t.Total = virtual.DistanceTo(target.Pos)
	t.Covered = 0
	r.clearWarning()
	g.bus.Publish(protocol.TravelRedirected{Tick: nowTick, RunnerID: r.ID, OldTo: oldTo, NewTo: to, Distance: t.Total})
}

// advanceTravel moves the runner and grants Athletics XP. XP accrues per
// tick of travel, independent of distance covered: movement speed and
// leveling are deliberately decoupled.
func (g *GameState) advanceTravel(r *Runner, nowTick uint64) {
	t := r.Travel
	t.Covered += g.travelSpeed(r) * g.cfg.TickSeconds()
	g.grantXP(r, skills.Athletics, g.cfg.Travel.AthleticsXPPerTick, nowTick)

	if t.Covered < t.Total {
		return
	}
	// Snap to the destination.
	r.Node = t.To
	r.Travel = nil
	g.bus.Publish(protocol.TravelArrived{Tick: nowTick, RunnerID: r.ID, Node: r.Node})

	if r.SequenceID != "" {
		g.onTravelStepArrived(r, nowTick)
	}
}
