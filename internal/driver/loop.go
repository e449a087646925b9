// Package driver supplies the frame clock the grid trace needs: a ticker
// loop for live use, an offline simulator for deterministic runs, and a
// scripted scroll host.
package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stepper is anything advanced once per frame with a millisecond timestamp.
// *gridtrace.Animator satisfies it.
type Stepper interface {
	Step(ts float64) int
}

// StepperFunc adapts a function to Stepper.
type StepperFunc func(ts float64) int

func (f StepperFunc) Step(ts float64) int { return f(ts) }

// Clock is the time source of a Loop.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock reads the wall clock. Durations derived from it are monotonic.
func RealClock() Clock { return realClock{} }

// ManualClock only moves when told to.
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{t: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// FrameFunc is called after every step with the frame number, its
// timestamp and the number of transitions the step performed.
type FrameFunc func(frame int64, ts float64, transitions int)

// Loop calls a Stepper at a fixed rate until its context ends.
type Loop struct {
	stepper Stepper
	fps     float64
	clock   Clock
	onFrame FrameFunc
	log     *zap.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithClock replaces the real clock. The ticker still fires in real time;
// only the timestamps come from c.
func WithClock(c Clock) LoopOption {
	return func(l *Loop) { l.clock = c }
}

// WithFrameFunc installs a per-frame hook.
func WithFrameFunc(fn FrameFunc) LoopOption {
	return func(l *Loop) { l.onFrame = fn }
}

// WithLogger sets the loop's logger.
func WithLogger(log *zap.Logger) LoopOption {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLoop creates a loop stepping s at fps frames per second.
func NewLoop(s Stepper, fps float64, opts ...LoopOption) (*Loop, error) {
	if s == nil {
		return nil, fmt.Errorf("creating loop: nil stepper")
	}
	if fps <= 0 || fps > 1000 {
		return nil, fmt.Errorf("creating loop: fps %v out of range (0, 1000]", fps)
	}
	l := &Loop{stepper: s, fps: fps, clock: RealClock(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Interval is the time between frames.
func (l *Loop) Interval() time.Duration {
	return time.Duration(float64(time.Second) / l.fps)
}

// Run steps immediately and then on every tick. It returns nil once ctx
// is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.Interval())
	defer ticker.Stop()

	origin := l.clock.Now()
	var frame int64
	step := func() {
		ts := float64(l.clock.Now().Sub(origin)) / float64(time.Millisecond)
		n := l.stepper.Step(ts)
		if l.onFrame != nil {
			l.onFrame(frame, ts, n)
		}
		frame++
	}

	l.log.Debug("frame loop started", zap.Float64("fps", l.fps))
	step()
	for {
		select {
		case <-ctx.Done():
			l.log.Debug("frame loop stopped", zap.Int64("frames", frame))
			return nil
		case <-ticker.C:
			step()
		}
	}
}

// Simulate steps s for the given number of frames with evenly spaced
// timestamps starting at 0, without sleeping. fn may be nil.
func Simulate(s Stepper, fps float64, frames int, fn FrameFunc) {
	dt := 1000 / fps
	for k := 0; k < frames; k++ {
		ts := float64(k) * dt
		n := s.Step(ts)
		if fn != nil {
			fn(int64(k), ts, n)
		}
	}
}
