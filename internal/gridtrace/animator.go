// Package gridtrace implements the scroll-synchronised grid trace: a point
// that walks a random path over a virtual grid anchored to document
// coordinates, drawn as a fading trail with a glowing head.
//
// The Animator owns all state and does nothing on its own. An external
// driver calls Step once per display frame with a monotonic millisecond
// timestamp; see package driver for the loop and the TUI for a tea.Tick
// based one.
package gridtrace

import (
	"fmt"
	"image/color"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Animator is one grid trace bound to one host page and surface.
// It is not safe for concurrent use; Step, Resize and SetParams must be
// called from the same goroutine.
type Animator struct {
	params Params
	color  color.NRGBA

	host     Host
	surface  Surface
	rng      *rand.Rand
	observer func(Transition)
	log      *zap.Logger

	// Geometry, refreshed by Resize.
	w, h float64
	cols int

	// Walk state. cell is the grid index of target; from is the waypoint
	// the head is leaving.
	cell    Cell
	from    Point
	head    Point
	target  Point
	lastDir Dir
	trail   *ring[Segment]
	visited *ring[Cell]

	// Frame timing.
	started     bool
	lastTS      float64
	scrollY     float64
	prevScrollY float64
	scrollVel   float64
	sinceStep   float64

	frames      int64
	transitions int64
}

// Option configures an Animator.
type Option func(*Animator)

// WithRand sets the random source used for direction picks.
func WithRand(r *rand.Rand) Option {
	return func(a *Animator) { a.rng = r }
}

// WithSeed is WithRand with a PCG source seeded from seed.
func WithSeed(seed uint64) Option {
	return func(a *Animator) { a.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithObserver installs a callback invoked after every waypoint transition.
func WithObserver(fn func(Transition)) Option {
	return func(a *Animator) { a.observer = fn }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(a *Animator) {
		if l != nil {
			a.log = l
		}
	}
}

// New validates params and places the head on the grid cell nearest the
// centre of the current viewport. A nil surface runs the walk headless.
func New(host Host, surface Surface, params Params, opts ...Option) (*Animator, error) {
	if host == nil {
		return nil, fmt.Errorf("creating animator: nil host")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	c, _ := ParseColor(params.Color)

	a := &Animator{
		params:  params,
		color:   c,
		host:    host,
		surface: surface,
		log:     zap.NewNop(),
		trail:   newRing[Segment](params.MaxSegments),
		visited: newRing[Cell](params.VisitedCapacity),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x2dff8f))
	}

	a.w, a.h = host.Viewport()
	a.cols = a.computeCols()
	a.scrollY = host.ScrollY()
	a.prevScrollY = a.scrollY

	cs := params.CellSize
	a.cell = Cell{
		I: clampInt(int(math.Round(a.w/2/cs)), 0, a.cols-1),
		J: int(math.Round((a.scrollY + a.h/2) / cs)),
	}
	a.head = a.cellPoint(a.cell)
	a.target = a.head
	a.from = a.head

	a.log.Debug("grid trace started",
		zap.Float64("width", a.w), zap.Float64("height", a.h),
		zap.Int("cols", a.cols), zap.Int("i", a.cell.I), zap.Int("j", a.cell.J))
	return a, nil
}

func (a *Animator) computeCols() int {
	cols := int(math.Ceil(a.w/a.params.CellSize)) + a.params.ExtraCols
	if cols < 1 {
		cols = 1
	}
	return cols
}

func (a *Animator) cellPoint(c Cell) Point {
	return Point{X: float64(c.I) * a.params.CellSize, Y: float64(c.J) * a.params.CellSize}
}

// Step advances one frame. ts is a monotonic timestamp in milliseconds;
// the first call only establishes the time base. It returns the number of
// waypoint transitions performed, which is 0 or 1.
func (a *Animator) Step(ts float64) int {
	a.frames++

	dt := 0.0
	if a.started {
		dt = ts - a.lastTS
	}
	a.started = true
	a.lastTS = ts
	dt = clampFloat(dt, 0, millis(a.params.MaxFrameDelta))

	sy := a.host.ScrollY()
	if dt > 0 {
		a.scrollVel = (sy - a.prevScrollY) / (dt / millis(a.params.FrameBaseline))
	} else {
		a.scrollVel = 0
	}
	a.prevScrollY = sy
	a.scrollY = sy

	speed := 1 + math.Min(math.Abs(a.scrollVel)/a.params.SpeedDivisor, a.params.SpeedCap)
	a.sinceStep += dt * speed

	n := 0
	if a.sinceStep > millis(a.params.StepInterval) {
		a.advance(ts)
		a.sinceStep = 0
		n = 1
	}

	k := a.params.Smoothing
	a.head.X += (a.target.X - a.head.X) * k
	a.head.Y += (a.target.Y - a.head.Y) * k

	a.draw()
	return n
}

// advance performs one waypoint transition.
func (a *Animator) advance(ts float64) {
	// A shrink can leave the head right of the last column. Walk on from
	// the edge; the head eases back from where it is.
	if a.cell.I >= a.cols {
		a.log.Debug("grid trace clamped to columns", zap.Int("i", a.cell.I), zap.Int("cols", a.cols))
		a.cell.I = a.cols - 1
	}

	cands := weigh(a.params, walkInput{
		cur:       a.cell,
		last:      a.lastDir,
		cols:      a.cols,
		band:      computeBand(a.scrollY, a.h, a.params.CellSize, a.params.EdgeMargin),
		visited:   a.visited,
		scrollVel: a.scrollVel,
	})

	a.transitions++
	tr := Transition{
		Seq:        a.transitions,
		At:         ts,
		From:       a.cell,
		To:         a.cell,
		ScrollVel:  a.scrollVel,
		Candidates: len(cands),
	}

	c, ok := pick(cands, a.rng.Float64())
	if !ok {
		tr.Stalled = true
		a.log.Debug("grid trace stalled", zap.Int("i", a.cell.I), zap.Int("j", a.cell.J), zap.Int("cols", a.cols))
	} else {
		fromPt := a.cellPoint(a.cell)
		toPt := a.cellPoint(c.cell)
		a.trail.Push(Segment{A: fromPt, B: toPt})
		a.visited.Push(a.cell)
		a.lastDir = c.dir
		a.from = fromPt
		a.cell = c.cell
		a.target = toPt
		tr.To = c.cell
		tr.Dir = c.dir
	}

	if a.observer != nil {
		a.observer(tr)
	}
}

// SegmentAlpha is the opacity of the i-th of n retained segments, oldest
// first. The newest segment gets n/(n+1) of base.
func SegmentAlpha(i, n int, base float64) float64 {
	return float64(i+1) / float64(n+1) * base
}

func (a *Animator) toScreen(p Point) Point {
	return Point{X: p.X, Y: p.Y - a.scrollY}
}

func (a *Animator) draw() {
	if a.surface == nil {
		return
	}
	p := a.params
	a.surface.Clear(a.w, a.h)

	n := a.trail.Len()
	for i := 0; i < n; i++ {
		s := a.trail.At(i)
		sa, sb := a.toScreen(s.A), a.toScreen(s.B)
		if math.Max(sa.Y, sb.Y) < 0 || math.Min(sa.Y, sb.Y) > a.h {
			continue
		}
		a.surface.Line(sa, sb, Stroke{Color: a.color, Alpha: SegmentAlpha(i, n, p.BaseAlpha), Width: p.LineWidth})
	}

	head := a.toScreen(a.head)
	a.surface.Line(a.toScreen(a.from), head, Stroke{Color: a.color, Alpha: p.BaseAlpha, Width: p.LineWidth})
	a.surface.Dot(head, p.HeadRadius, Stroke{Color: a.color, Alpha: 1, Glow: p.HeadGlow})
}

// Resize re-reads the viewport. Only the column bound changes; the trail
// and the head stay where they are.
func (a *Animator) Resize() {
	a.w, a.h = a.host.Viewport()
	a.cols = a.computeCols()
	a.log.Debug("grid trace resized", zap.Float64("width", a.w), zap.Float64("height", a.h), zap.Int("cols", a.cols))
}

// SetParams swaps the tuning parameters in place. Trail and visited
// history are truncated to the new capacities, newest kept.
func (a *Animator) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.CellSize != a.params.CellSize {
		return fmt.Errorf("%w: cell_size cannot change on a running animator", ErrInvalidParams)
	}
	a.color, _ = ParseColor(p.Color)
	a.params = p
	a.trail.Resize(p.MaxSegments)
	a.visited.Resize(p.VisitedCapacity)
	a.cols = a.computeCols()
	return nil
}

// Params returns the active parameters.
func (a *Animator) Params() Params { return a.params }

// Head returns the eased head position in screen space.
func (a *Animator) Head() (x, y float64) {
	h := a.toScreen(a.head)
	return h.X, h.Y
}

// World returns the eased head position in document space.
func (a *Animator) World() Point { return a.head }

// Target returns the waypoint the head is easing toward.
func (a *Animator) Target() Point { return a.target }

// Cell returns the grid index of the target waypoint.
func (a *Animator) Cell() Cell { return a.cell }

// Cols is the current horizontal bound: columns are in [0, Cols()).
func (a *Animator) Cols() int { return a.cols }

// ScrollVelocity is the last measured scroll speed per nominal frame.
func (a *Animator) ScrollVelocity() float64 { return a.scrollVel }

// Segments returns a copy of the retained trail, oldest first.
func (a *Animator) Segments() []Segment { return a.trail.Slice() }

// Frames is the number of Step calls so far.
func (a *Animator) Frames() int64 { return a.frames }

// Transitions is the number of waypoint transitions so far.
func (a *Animator) Transitions() int64 { return a.transitions }

// Snapshot copies the current state.
func (a *Animator) Snapshot() Snapshot {
	return Snapshot{
		Frame:       a.frames,
		Transitions: a.transitions,
		At:          a.lastTS,
		ScrollY:     a.scrollY,
		ScrollVel:   a.scrollVel,
		Width:       a.w,
		Height:      a.h,
		Cols:        a.cols,
		Cell:        a.cell,
		Head:        a.head,
		Target:      a.target,
		Segments:    a.trail.Slice(),
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
