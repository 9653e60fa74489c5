// Package host drives the simulation at a fixed tick rate on a single
// goroutine. Commands from other goroutines are queued and executed
// between ticks, so the simulation itself never needs locks.
package host

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"runnerkeep.gg/internal/sim/world"
)

type Config struct {
	TickDuration time.Duration

	// MaxTicksPerFrame caps catch-up after a stall (debugger, laptop
	// sleep). Owed ticks beyond the cap are dropped, trading game time
	// for responsiveness.
	MaxTicksPerFrame int
}

const DefaultMaxTicksPerFrame = 25

type Loop struct {
	cfg  Config
	game *world.GameState
	log  *slog.Logger

	commands chan func(*world.GameState)
	stop     chan struct{}

	acc       time.Duration
	paused    atomic.Bool
	speedBits atomic.Uint64 // float64 bits; 0 means 1x

	// OnTick runs after every simulated tick, on the loop goroutine.
	// Set before Run.
	OnTick func(tick uint64)
}

func New(cfg Config, game *world.GameState, logger *slog.Logger) *Loop {
	if cfg.MaxTicksPerFrame <= 0 {
		cfg.MaxTicksPerFrame = DefaultMaxTicksPerFrame
	}
	return &Loop{
		cfg:      cfg,
		game:     game,
		log:      logger,
		commands: make(chan func(*world.GameState), 256),
		stop:     make(chan struct{}),
	}
}

// Do queues fn to run on the loop goroutine between ticks.
func (l *Loop) Do(fn func(*world.GameState)) {
	l.commands <- fn
}

// Call runs fn on the loop goroutine and waits for it to finish. Use it
// for reads that must see a consistent between-ticks state.
func (l *Loop) Call(fn func(*world.GameState)) {
	done := make(chan struct{})
	l.commands <- func(g *world.GameState) {
		fn(g)
		close(done)
	}
	<-done
}

func (l *Loop) Stop() { close(l.stop) }

// SetPaused stops game time from accumulating; wall time spent paused is
// never owed back.
func (l *Loop) SetPaused(p bool) { l.paused.Store(p) }
func (l *Loop) Paused() bool     { return l.paused.Load() }

// SetSpeed scales how fast game time passes relative to wall time,
// clamped to [0.1, 32].
func (l *Loop) SetSpeed(mult float64) {
	l.speedBits.Store(math.Float64bits(math.Min(32, math.Max(0.1, mult))))
}

func (l *Loop) Speed() float64 {
	bits := l.speedBits.Load()
	if bits == 0 {
		return 1
	}
	return math.Float64frombits(bits)
}

func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.TickDuration)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		case fn := <-l.commands:
			fn(l.game)
		case now := <-ticker.C:
			l.frame(now.Sub(last))
			last = now
		}
	}
}

// frame banks elapsed wall time and runs the owed ticks, dropping any
// beyond MaxTicksPerFrame.
func (l *Loop) frame(elapsed time.Duration) int {
	if l.paused.Load() {
		l.acc = 0
		return 0
	}
	l.acc += time.Duration(float64(elapsed) * l.Speed())
	owed := int(l.acc / l.cfg.TickDuration)
	if owed <= 0 {
		return 0
	}
	l.acc -= time.Duration(owed) * l.cfg.TickDuration
	if owed > l.cfg.MaxTicksPerFrame {
		l.log.Warn("tick loop behind, dropping owed ticks",
			"owed", owed, "cap", l.cfg.MaxTicksPerFrame)
		owed = l.cfg.MaxTicksPerFrame
		l.acc = 0
	}
	for i := 0; i < owed; i++ {
		l.game.Tick()
		if l.OnTick != nil {
			l.OnTick(l.game.CurrentTick())
		}
	}
	return owed
}
