package canvas

import (
	"math"
	"strings"

	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
)

// Cells rasterises onto a grid of character cells. Each cell keeps the
// highest intensity drawn into it during the frame.
type Cells struct {
	// CellW and CellH are the document units covered by one cell.
	CellW, CellH float64

	cols, rows int
	level      []float64
	head       []bool
}

// NewCells creates a cell surface with the given cell footprint.
func NewCells(cellW, cellH float64) *Cells {
	return &Cells{CellW: cellW, CellH: cellH}
}

// Size returns the grid dimensions set by the last Clear.
func (c *Cells) Size() (cols, rows int) { return c.cols, c.rows }

// Clear sizes the grid to cover w×h units and zeroes it.
func (c *Cells) Clear(w, h float64) {
	// The epsilon keeps w = n*CellW from rounding up to n+1 cells.
	cols := int(math.Ceil(w/c.CellW - 1e-9))
	rows := int(math.Ceil(h/c.CellH - 1e-9))
	cols, rows = max(cols, 0), max(rows, 0)
	n := cols * rows
	if cap(c.level) < n {
		c.level = make([]float64, n)
		c.head = make([]bool, n)
	}
	c.level = c.level[:n]
	c.head = c.head[:n]
	clear(c.level)
	clear(c.head)
	c.cols, c.rows = cols, rows
}

// Line samples the segment at half-cell steps.
func (c *Cells) Line(a, b gridtrace.Point, s gridtrace.Stroke) {
	steps := int(math.Ceil(2*math.Max(math.Abs(b.X-a.X)/c.CellW, math.Abs(b.Y-a.Y)/c.CellH))) + 1
	for k := 0; k <= steps; k++ {
		t := float64(k) / float64(steps)
		c.plot(a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t, s.Alpha)
	}
}

// Dot marks the cell under p as a head cell. A glow lights the eight
// neighbours faintly.
func (c *Cells) Dot(p gridtrace.Point, _ float64, s gridtrace.Stroke) {
	col, row, ok := c.index(p.X, p.Y)
	if !ok {
		return
	}
	if s.Glow > 0 {
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				c.set(col+dc, row+dr, s.Alpha*0.3)
			}
		}
	}
	c.set(col, row, s.Alpha)
	c.head[row*c.cols+col] = true
}

func (c *Cells) plot(x, y, v float64) {
	if col, row, ok := c.index(x, y); ok {
		c.set(col, row, v)
	}
}

func (c *Cells) index(x, y float64) (col, row int, ok bool) {
	col = int(math.Floor(x / c.CellW))
	row = int(math.Floor(y / c.CellH))
	return col, row, col >= 0 && col < c.cols && row >= 0 && row < c.rows
}

func (c *Cells) set(col, row int, v float64) {
	if col < 0 || col >= c.cols || row < 0 || row >= c.rows {
		return
	}
	i := row*c.cols + col
	if v > c.level[i] {
		c.level[i] = v
	}
}

// At returns the intensity of a cell and whether the head is in it.
func (c *Cells) At(col, row int) (float64, bool) {
	if col < 0 || col >= c.cols || row < 0 || row >= c.rows {
		return 0, false
	}
	i := row*c.cols + col
	return c.level[i], c.head[i]
}

// Render builds the grid as text, one line per row, with glyph choosing
// the string for each cell.
func (c *Cells) Render(glyph func(level float64, head bool) string) string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < c.cols; col++ {
			i := row*c.cols + col
			b.WriteString(glyph(c.level[i], c.head[i]))
		}
	}
	return b.String()
}
