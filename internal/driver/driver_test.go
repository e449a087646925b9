package driver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
)

type recorder struct {
	mu  sync.Mutex
	tss []float64
}

func (r *recorder) Step(ts float64) int {
	r.mu.Lock()
	r.tss = append(r.tss, ts)
	r.mu.Unlock()
	return 0
}

func (r *recorder) snapshot() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.tss...)
}

func TestLoopRunsUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	loop, err := NewLoop(rec, 200)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, loop.Interval())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 5 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	tss := rec.snapshot()
	assert.Less(t, tss[0], 5.0, "first step runs immediately")
	for i := 1; i < len(tss); i++ {
		assert.GreaterOrEqual(t, tss[i], tss[i-1])
	}
}

func TestLoopUsesInjectedClock(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := NewManualClock(time.Unix(0, 0))
	var frames []int64
	var mu sync.Mutex
	var stamps []float64
	loop, err := NewLoop(StepperFunc(func(ts float64) int {
		clock.Advance(10 * time.Millisecond)
		return 1
	}), 500, WithClock(clock), WithFrameFunc(func(frame int64, ts float64, n int) {
		mu.Lock()
		frames = append(frames, frame)
		stamps = append(stamps, ts)
		mu.Unlock()
		assert.Equal(t, 1, n)
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, loop.Run(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, frames)
	for i, f := range frames {
		assert.Equal(t, int64(i), f)
		assert.Equal(t, float64(i*10), stamps[i])
	}
}

func TestNewLoopRejectsBadInput(t *testing.T) {
	_, err := NewLoop(nil, 60)
	assert.Error(t, err)
	_, err = NewLoop(&recorder{}, 0)
	assert.Error(t, err)
}

func TestSimulate(t *testing.T) {
	rec := &recorder{}
	var last int64
	Simulate(rec, 50, 4, func(frame int64, ts float64, n int) { last = frame })
	assert.Equal(t, []float64{0, 20, 40, 60}, rec.snapshot())
	assert.Equal(t, int64(3), last)
}

func TestScrollScriptInterpolates(t *testing.T) {
	s := NewScrollScript(800, 600, false,
		Keyframe{2 * time.Second, 1000},
		Keyframe{0, 0},
		Keyframe{4 * time.Second, 1000},
	)

	cases := map[float64]float64{
		-10:  0,
		0:    0,
		500:  250,
		2000: 1000,
		3000: 1000,
		9000: 1000,
	}
	for ts, want := range cases {
		s.Seek(ts)
		assert.InDelta(t, want, s.ScrollY(), 1e-9, "ts=%v", ts)
	}
}

func TestScrollScriptRepeats(t *testing.T) {
	s := NewScrollScript(800, 600, true, Keyframe{0, 0}, Keyframe{time.Second, 100})
	s.Seek(1500)
	assert.InDelta(t, 50, s.ScrollY(), 1e-9)
}

func TestScrollScriptEmpty(t *testing.T) {
	s := NewScrollScript(10, 10, true)
	s.Seek(1234)
	assert.Zero(t, s.ScrollY())
}

func TestSetViewportFiresResize(t *testing.T) {
	s := NewScrollScript(800, 600, false)
	calls := 0
	s.OnResize(func() { calls++ })
	s.SetViewport(1024, 768)

	w, h := s.Viewport()
	assert.Equal(t, 1024.0, w)
	assert.Equal(t, 768.0, h)
	assert.Equal(t, 1, calls)
}

func TestParseKeyframes(t *testing.T) {
	fs, err := ParseKeyframes("0s=0, 2s=1200,4.5s=300")
	require.NoError(t, err)
	assert.Equal(t, []Keyframe{{0, 0}, {2 * time.Second, 1200}, {4500 * time.Millisecond, 300}}, fs)

	for _, bad := range []string{"", "2s", "x=1", "1s=y"} {
		_, err := ParseKeyframes(bad)
		assert.Error(t, err, bad)
	}
}

func TestScriptDrivesAnimator(t *testing.T) {
	s := DefaultScript(1200, 800)
	a, err := gridtrace.New(s, nil, gridtrace.DefaultParams(), gridtrace.WithSeed(7))
	require.NoError(t, err)
	s.OnResize(a.Resize)

	var transitions int
	Simulate(s.Drive(a), 60, 60*12, func(_ int64, _ float64, n int) { transitions += n })

	assert.Greater(t, transitions, 10)
	assert.Equal(t, int64(transitions), a.Transitions())

	s.SetViewport(600, 800)
	assert.Equal(t, 11, a.Cols())
}
