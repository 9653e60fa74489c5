package host

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"runnerkeep.gg/internal/sim/eventbus"
	"runnerkeep.gg/internal/sim/items"
	"runnerkeep.gg/internal/sim/tuning"
	"runnerkeep.gg/internal/sim/world"
	"runnerkeep.gg/internal/sim/worldmap"
)

func newLoopGame(t *testing.T) *world.GameState {
	t.Helper()
	m := worldmap.New()
	m.AddNode(worldmap.Node{ID: "hub", Name: "Hub"})
	if err := m.Initialize(); err != nil {
		t.Fatalf("map: %v", err)
	}
	g, err := world.New(tuning.Default(), items.NewCatalog(nil), m, eventbus.New())
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	return g
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFrame_AccumulatesPartialTicks(t *testing.T) {
	g := newLoopGame(t)
	l := New(Config{TickDuration: 100 * time.Millisecond, MaxTicksPerFrame: 10}, g, discardLogger())

	if ran := l.frame(60 * time.Millisecond); ran != 0 {
		t.Fatalf("ran %d ticks on partial frame", ran)
	}
	if ran := l.frame(60 * time.Millisecond); ran != 1 {
		t.Fatalf("ran %d ticks, want 1", ran)
	}
	if g.CurrentTick() != 1 {
		t.Fatalf("tick = %d", g.CurrentTick())
	}
	// 20ms remainder carried over.
	if ran := l.frame(80 * time.Millisecond); ran != 1 {
		t.Fatalf("remainder not banked: ran %d", ran)
	}
}

func TestFrame_CapDropsOwedTicks(t *testing.T) {
	g := newLoopGame(t)
	l := New(Config{TickDuration: 10 * time.Millisecond, MaxTicksPerFrame: 5}, g, discardLogger())

	if ran := l.frame(3 * time.Second); ran != 5 {
		t.Fatalf("ran %d ticks, want capped 5", ran)
	}
	if g.CurrentTick() != 5 {
		t.Fatalf("tick = %d", g.CurrentTick())
	}
	// The dropped backlog must not leak into the next frame.
	if ran := l.frame(5 * time.Millisecond); ran != 0 {
		t.Fatalf("backlog leaked: ran %d", ran)
	}
}

func TestFrame_PausedAccumulatesNothing(t *testing.T) {
	g := newLoopGame(t)
	l := New(Config{TickDuration: 10 * time.Millisecond, MaxTicksPerFrame: 100}, g, discardLogger())

	l.SetPaused(true)
	if ran := l.frame(time.Second); ran != 0 {
		t.Fatalf("ran %d ticks while paused", ran)
	}
	l.SetPaused(false)
	// Time spent paused is gone, not owed.
	if ran := l.frame(5 * time.Millisecond); ran != 0 {
		t.Fatalf("paused time owed back: ran %d", ran)
	}
}

func TestFrame_SpeedMultiplier(t *testing.T) {
	g := newLoopGame(t)
	l := New(Config{TickDuration: 10 * time.Millisecond, MaxTicksPerFrame: 100}, g, discardLogger())

	l.SetSpeed(4)
	if ran := l.frame(10 * time.Millisecond); ran != 4 {
		t.Fatalf("ran %d ticks at 4x, want 4", ran)
	}
	if l.Speed() != 4 {
		t.Fatalf("speed = %v", l.Speed())
	}
	l.SetSpeed(1000)
	if l.Speed() != 32 {
		t.Fatalf("speed not clamped: %v", l.Speed())
	}
}

func TestLoop_RunAndCall(t *testing.T) {
	g := newLoopGame(t)
	l := New(Config{TickDuration: 5 * time.Millisecond}, g, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	var id string
	l.Call(func(g *world.GameState) {
		r, err := g.AddRunner("Brom", "hub")
		if err != nil {
			t.Errorf("add runner: %v", err)
			return
		}
		id = r.ID
	})
	if id == "" {
		t.Fatalf("runner not created")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var tick uint64
		l.Call(func(g *world.GameState) { tick = g.CurrentTick() })
		if tick > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("loop never ticked")
		}
		time.Sleep(5 * time.Millisecond)
	}

	l.Stop()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}
