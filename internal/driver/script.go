package driver

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Keyframe pins the scroll offset at a point in time.
type Keyframe struct {
	At      time.Duration `yaml:"at" json:"at"`
	ScrollY float64       `yaml:"scroll_y" json:"scroll_y"`
}

// ScrollScript is a synthetic page: a viewport of fixed size whose scroll
// offset follows keyframes with linear interpolation. It implements
// gridtrace.Host. The current time is set by Seek or by a stepper wrapped
// with Drive.
type ScrollScript struct {
	mu       sync.RWMutex
	frames   []Keyframe
	repeat   bool
	w, h     float64
	now      float64
	onResize func()
}

// NewScrollScript sorts frames by time. With repeat set the script loops
// after its last keyframe.
func NewScrollScript(w, h float64, repeat bool, frames ...Keyframe) *ScrollScript {
	fs := slices.Clone(frames)
	slices.SortStableFunc(fs, func(a, b Keyframe) int { return cmp.Compare(a.At, b.At) })
	return &ScrollScript{frames: fs, repeat: repeat, w: w, h: h}
}

// DefaultScript reads down a long page, pauses, flicks back up and loops.
func DefaultScript(w, h float64) *ScrollScript {
	return NewScrollScript(w, h, true,
		Keyframe{0, 0},
		Keyframe{2 * time.Second, 0},
		Keyframe{5 * time.Second, 1800},
		Keyframe{6 * time.Second, 1800},
		Keyframe{6500 * time.Millisecond, 600},
		Keyframe{9 * time.Second, 600},
		Keyframe{11 * time.Second, 0},
	)
}

// ParseKeyframes reads "0s=0,2s=1200,4.5s=300".
func ParseKeyframes(s string) ([]Keyframe, error) {
	var out []Keyframe
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		at, y, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("keyframe %q: want time=scroll", part)
		}
		d, err := time.ParseDuration(strings.TrimSpace(at))
		if err != nil {
			return nil, fmt.Errorf("keyframe %q: %w", part, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(y), 64)
		if err != nil {
			return nil, fmt.Errorf("keyframe %q: %w", part, err)
		}
		out = append(out, Keyframe{At: d, ScrollY: v})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no keyframes in %q", s)
	}
	return out, nil
}

// Seek sets the script time in milliseconds.
func (s *ScrollScript) Seek(ts float64) {
	s.mu.Lock()
	s.now = ts
	s.mu.Unlock()
}

// Drive returns a stepper that seeks the script to each timestamp before
// passing it on to next.
func (s *ScrollScript) Drive(next Stepper) Stepper {
	return StepperFunc(func(ts float64) int {
		s.Seek(ts)
		return next.Step(ts)
	})
}

// ScrollY interpolates the scroll offset at the current time.
func (s *ScrollScript) ScrollY() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.at(s.now)
}

func (s *ScrollScript) at(ts float64) float64 {
	n := len(s.frames)
	if n == 0 {
		return 0
	}
	t := time.Duration(ts * float64(time.Millisecond))
	last := s.frames[n-1]
	if s.repeat && last.At > 0 && t > last.At {
		t %= last.At
	}
	if t <= s.frames[0].At {
		return s.frames[0].ScrollY
	}
	for i := 1; i < n; i++ {
		b := s.frames[i]
		if t > b.At {
			continue
		}
		a := s.frames[i-1]
		span := float64(b.At - a.At)
		if span == 0 {
			return b.ScrollY
		}
		return a.ScrollY + (b.ScrollY-a.ScrollY)*float64(t-a.At)/span
	}
	return last.ScrollY
}

// Viewport returns the current size.
func (s *ScrollScript) Viewport() (w, h float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w, s.h
}

// OnResize installs the hook SetViewport calls, typically Animator.Resize.
func (s *ScrollScript) OnResize(fn func()) {
	s.mu.Lock()
	s.onResize = fn
	s.mu.Unlock()
}

// SetViewport changes the size and fires the resize hook.
func (s *ScrollScript) SetViewport(w, h float64) {
	s.mu.Lock()
	s.w, s.h = w, h
	fn := s.onResize
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
