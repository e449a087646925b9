package stream

import (
	"math"
	"sync"
	"sync/atomic"
)

// Bounds on client reports. The animator turns scroll and width into grid
// indices, so values past these would overflow them.
const (
	maxScrollY   = 1 << 30
	maxViewportW = 1 << 16
	maxViewportH = 1 << 16
)

// RemoteHost is a gridtrace.Host whose scroll position and viewport are
// reported by a browser. It is safe for concurrent use: the hub writes
// from connection goroutines while the animator reads on its frame
// goroutine.
type RemoteHost struct {
	mu      sync.RWMutex
	scrollY float64
	w, h    float64
	updates atomic.Int64
}

// NewRemoteHost starts with the given viewport and no scroll.
func NewRemoteHost(w, h float64) *RemoteHost {
	return &RemoteHost{w: w, h: h}
}

func (r *RemoteHost) ScrollY() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scrollY
}

func (r *RemoteHost) Viewport() (w, h float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.w, r.h
}

// Update records a client report. Scroll is clamped to [0, 2^30] and a NaN
// scroll keeps the previous one. Sizes are capped at 65536; non-positive or
// NaN sizes keep the previous viewport.
func (r *RemoteHost) Update(scrollY, w, h float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !math.IsNaN(scrollY) {
		r.scrollY = min(max(scrollY, 0), maxScrollY)
	}
	if w > 0 && h > 0 {
		r.w, r.h = min(w, maxViewportW), min(h, maxViewportH)
	}
	r.updates.Add(1)
}

// Updates is the number of reports applied.
func (r *RemoteHost) Updates() int64 { return r.updates.Load() }
