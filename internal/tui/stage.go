package tui

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Mr-Dark-debug/veridian/internal/canvas"
	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
)

// Terminal cells are roughly twice as tall as they are wide, so one
// column covers a sixth of a grid cell and one row a third.
const (
	colsPerCell = 6
	rowsPerCell = 3
)

// logSize is how many recent transitions the log pane keeps.
const logSize = 64

// stage owns the animator, its cell surface and the page it walks over.
// Everything here runs on the bubbletea update goroutine.
type stage struct {
	anim   *gridtrace.Animator
	cells  *canvas.Cells
	page   *page
	ramp   ramp
	seed   uint64
	log    *zap.Logger
	cols   int
	rows   int
	recent []gridtrace.Transition
	total  int64
}

func newStage(p gridtrace.Params, pg *page, seed uint64, log *zap.Logger, cols, rows int) (*stage, error) {
	s := &stage{page: pg, seed: seed, log: log, cols: max(cols, 1), rows: max(rows, 1)}
	if err := s.build(p); err != nil {
		return nil, err
	}
	return s, nil
}

// build creates a fresh animator for p. The trail starts over.
func (s *stage) build(p gridtrace.Params) error {
	cells := canvas.NewCells(p.CellSize/colsPerCell, p.CellSize/rowsPerCell)
	s.page.setViewport(float64(s.cols)*cells.CellW, float64(s.rows)*cells.CellH)

	anim, err := gridtrace.New(s.page, cells, p,
		gridtrace.WithSeed(s.seed),
		gridtrace.WithObserver(s.observe),
		gridtrace.WithLogger(s.log),
	)
	if err != nil {
		return err
	}
	s.anim, s.cells = anim, cells
	s.ramp = rampFor(p)
	return nil
}

func (s *stage) observe(tr gridtrace.Transition) {
	s.total++
	if len(s.recent) == logSize {
		copy(s.recent, s.recent[1:])
		s.recent = s.recent[:logSize-1]
	}
	s.recent = append(s.recent, tr)
}

// resize maps a terminal area onto the viewport and tells the animator.
func (s *stage) resize(cols, rows int) {
	s.cols, s.rows = max(cols, 0), max(rows, 0)
	s.page.setViewport(float64(s.cols)*s.cells.CellW, float64(s.rows)*s.cells.CellH)
	s.anim.Resize()
}

// step advances the scroll spring and then the walk.
func (s *stage) step(ts float64) int {
	s.page.update()
	return s.anim.Step(ts)
}

// setParams applies new tuning. A new cell size needs a new animator.
func (s *stage) setParams(p gridtrace.Params) (rebuilt bool, err error) {
	if p.CellSize != s.anim.Params().CellSize {
		if err := p.Validate(); err != nil {
			return false, err
		}
		s.recent = s.recent[:0]
		return true, s.build(p)
	}
	if err := s.anim.SetParams(p); err != nil {
		return false, err
	}
	s.ramp = rampFor(p)
	return false, nil
}

// view renders the last drawn frame, padded to the stage size.
func (s *stage) view() string {
	if s.cols == 0 || s.rows == 0 {
		return ""
	}
	cols, rows := s.cells.Size()
	if cols != s.cols || rows != s.rows {
		// Nothing drawn at this size yet.
		line := strings.Repeat(" ", s.cols)
		return strings.TrimSuffix(strings.Repeat(line+"\n", s.rows), "\n")
	}
	return s.cells.Render(s.ramp.glyph)
}
