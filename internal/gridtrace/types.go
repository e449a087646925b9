package gridtrace

import "image/color"

// Dir is a unit grid step.
type Dir struct {
	DI int `json:"di"`
	DJ int `json:"dj"`
}

// Directions are the four axis-aligned steps, in candidate order.
var Directions = [4]Dir{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// Reverse returns the opposite step.
func (d Dir) Reverse() Dir { return Dir{-d.DI, -d.DJ} }

// IsZero reports whether d is the "no move" direction.
func (d Dir) IsZero() bool { return d.DI == 0 && d.DJ == 0 }

func (d Dir) String() string {
	switch d {
	case Dir{1, 0}:
		return "right"
	case Dir{-1, 0}:
		return "left"
	case Dir{0, 1}:
		return "down"
	case Dir{0, -1}:
		return "up"
	}
	return "none"
}

// Cell is a grid index. World coordinates of a cell are (I*CellSize, J*CellSize).
type Cell struct {
	I int `json:"i"`
	J int `json:"j"`
}

// Add returns the neighbouring cell in direction d.
func (c Cell) Add(d Dir) Cell { return Cell{c.I + d.DI, c.J + d.DJ} }

// Point is a position in document (world) space unless noted otherwise.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is one confirmed step of the trail, in world space.
type Segment struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Stroke describes how a Surface should paint a primitive.
type Stroke struct {
	Color color.NRGBA
	Alpha float64
	Width float64
	Glow  float64
}

// Host exposes the page the animation lives on.
type Host interface {
	// ScrollY is the current vertical scroll offset in document units.
	ScrollY() float64
	// Viewport returns the visible width and height.
	Viewport() (w, h float64)
}

// Surface is the drawing collaborator. Coordinates are in screen space.
type Surface interface {
	Clear(w, h float64)
	Line(a, b Point, s Stroke)
	Dot(p Point, radius float64, s Stroke)
}

// Transition describes one waypoint transition. It is handed to the
// observer installed with WithObserver.
type Transition struct {
	Seq        int64   `json:"seq"`
	At         float64 `json:"at_ms"`
	From       Cell    `json:"from"`
	To         Cell    `json:"to"`
	Dir        Dir     `json:"dir"`
	ScrollVel  float64 `json:"scroll_vel"`
	Candidates int     `json:"candidates"`
	Stalled    bool    `json:"stalled"`
}

// Snapshot is a copy of the animator state after a frame.
type Snapshot struct {
	Frame       int64     `json:"frame"`
	Transitions int64     `json:"transitions"`
	At          float64   `json:"at_ms"`
	ScrollY     float64   `json:"scroll_y"`
	ScrollVel   float64   `json:"scroll_vel"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Cols        int       `json:"cols"`
	Cell        Cell      `json:"cell"`
	Head        Point     `json:"head"`
	Target      Point     `json:"target"`
	Segments    []Segment `json:"segments"`
}
