package world

import "runnerkeep.gg/internal/protocol"

// startDeposit begins the fixed-duration deposit activity. Duration does
// not depend on inventory contents; an empty inventory still takes the
// full time but fires no deposit event at completion.
func (g *GameState) startDeposit(r *Runner, nowTick uint64) {
	r.Travel = nil
	r.Depositing = &DepositingState{Node: r.Node, TicksRemaining: g.cfg.Deposit.DurationTicks}
	g.bus.Publish(protocol.DepositStarted{Tick: nowTick, RunnerID: r.ID, Node: r.Node})
}

func (g *GameState) advanceDeposit(r *Runner, nowTick uint64) {
	d := r.Depositing
	d.TicksRemaining--
	if d.TicksRemaining > 0 {
		return
	}

	kinds, units := g.Bank.DepositAll(r.Inventory.Clear())
	r.Depositing = nil
	r.clearWarning()
	if units > 0 {
		g.bus.Publish(protocol.DepositCompleted{
			Tick: nowTick, RunnerID: r.ID, Node: r.Node, Stacks: kinds, Units: units,
		})
	}

	// A deposit round-trip that interrupted gathering may now head back.
	if memo := r.Gathering; memo != nil && memo.Phase == PhaseToDeposit {
		memo.Phase = PhaseReturning
	}

	if r.SequenceID != "" {
		g.AdvanceStep(r, nowTick)
	}
}
