package gridtrace

import (
	"errors"
	"fmt"
	"image/color"
	"time"
)

// ErrInvalidParams is wrapped by every Params.Validate failure.
var ErrInvalidParams = errors.New("invalid grid trace params")

// Params holds every tuning constant of the walk. The defaults were tuned
// by eye on the landing page; none of them is load-bearing for correctness.
type Params struct {
	CellSize        float64       `yaml:"cell_size" json:"cell_size"`
	ExtraCols       int           `yaml:"extra_cols" json:"extra_cols"`
	MaxSegments     int           `yaml:"max_segments" json:"max_segments"`
	VisitedCapacity int           `yaml:"visited_capacity" json:"visited_capacity"`
	StepInterval    time.Duration `yaml:"step_interval" json:"step_interval"`
	MaxFrameDelta   time.Duration `yaml:"max_frame_delta" json:"max_frame_delta"`
	FrameBaseline   time.Duration `yaml:"frame_baseline" json:"frame_baseline"`
	Smoothing       float64       `yaml:"smoothing" json:"smoothing"`

	// Walk speed-up while scrolling: 1 + min(|v|/SpeedDivisor, SpeedCap).
	SpeedDivisor float64 `yaml:"speed_divisor" json:"speed_divisor"`
	SpeedCap     float64 `yaml:"speed_cap" json:"speed_cap"`

	// Candidate weighting.
	BaseWeight      float64 `yaml:"base_weight" json:"base_weight"`
	ReversePenalty  float64 `yaml:"reverse_penalty" json:"reverse_penalty"`
	RevisitPenalty  float64 `yaml:"revisit_penalty" json:"revisit_penalty"`
	ScrollBoost     float64 `yaml:"scroll_boost" json:"scroll_boost"`
	ScrollThreshold float64 `yaml:"scroll_threshold" json:"scroll_threshold"`
	StraightPenalty float64 `yaml:"straight_penalty" json:"straight_penalty"`

	// EdgeMargin is the number of rows kept free at the top and bottom of
	// the viewport.
	EdgeMargin int `yaml:"edge_margin" json:"edge_margin"`

	// Drawing.
	BaseAlpha  float64 `yaml:"base_alpha" json:"base_alpha"`
	LineWidth  float64 `yaml:"line_width" json:"line_width"`
	HeadRadius float64 `yaml:"head_radius" json:"head_radius"`
	HeadGlow   float64 `yaml:"head_glow" json:"head_glow"`
	Color      string  `yaml:"color" json:"color"`
}

// DefaultParams returns the values the landing page ships with.
func DefaultParams() Params {
	return Params{
		CellSize:        60,
		ExtraCols:       1,
		MaxSegments:     18,
		VisitedCapacity: 8,
		StepInterval:    470 * time.Millisecond,
		MaxFrameDelta:   80 * time.Millisecond,
		FrameBaseline:   16 * time.Millisecond,
		Smoothing:       0.13,
		SpeedDivisor:    30,
		SpeedCap:        2,
		BaseWeight:      10,
		ReversePenalty:  0.05,
		RevisitPenalty:  0.1,
		ScrollBoost:     4.5,
		ScrollThreshold: 8,
		StraightPenalty: 0.6,
		EdgeMargin:      1,
		BaseAlpha:       0.55,
		LineWidth:       1.5,
		HeadRadius:      3,
		HeadGlow:        12,
		Color:           "#2dff8f",
	}
}

// Validate reports the first out-of-range field.
func (p Params) Validate() error {
	switch {
	case p.CellSize <= 0:
		return fmt.Errorf("%w: cell_size must be positive, got %v", ErrInvalidParams, p.CellSize)
	case p.ExtraCols < 0:
		return fmt.Errorf("%w: extra_cols must not be negative, got %d", ErrInvalidParams, p.ExtraCols)
	case p.MaxSegments < 1:
		return fmt.Errorf("%w: max_segments must be at least 1, got %d", ErrInvalidParams, p.MaxSegments)
	case p.VisitedCapacity < 1:
		return fmt.Errorf("%w: visited_capacity must be at least 1, got %d", ErrInvalidParams, p.VisitedCapacity)
	case p.StepInterval <= 0:
		return fmt.Errorf("%w: step_interval must be positive, got %v", ErrInvalidParams, p.StepInterval)
	case p.MaxFrameDelta <= 0:
		return fmt.Errorf("%w: max_frame_delta must be positive, got %v", ErrInvalidParams, p.MaxFrameDelta)
	case p.FrameBaseline <= 0:
		return fmt.Errorf("%w: frame_baseline must be positive, got %v", ErrInvalidParams, p.FrameBaseline)
	case p.Smoothing <= 0 || p.Smoothing > 1:
		return fmt.Errorf("%w: smoothing must be in (0, 1], got %v", ErrInvalidParams, p.Smoothing)
	case p.SpeedDivisor <= 0:
		return fmt.Errorf("%w: speed_divisor must be positive, got %v", ErrInvalidParams, p.SpeedDivisor)
	case p.SpeedCap < 0:
		return fmt.Errorf("%w: speed_cap must not be negative, got %v", ErrInvalidParams, p.SpeedCap)
	case p.BaseWeight <= 0:
		return fmt.Errorf("%w: base_weight must be positive, got %v", ErrInvalidParams, p.BaseWeight)
	case p.ReversePenalty < 0, p.RevisitPenalty < 0, p.ScrollBoost < 0, p.StraightPenalty < 0:
		return fmt.Errorf("%w: weight multipliers must not be negative", ErrInvalidParams)
	case p.EdgeMargin < 0:
		return fmt.Errorf("%w: edge_margin must not be negative, got %d", ErrInvalidParams, p.EdgeMargin)
	case p.BaseAlpha < 0 || p.BaseAlpha > 1:
		return fmt.Errorf("%w: base_alpha must be in [0, 1], got %v", ErrInvalidParams, p.BaseAlpha)
	}
	if _, err := ParseColor(p.Color); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// ParseColor parses "#rrggbb" or "#rgb".
func ParseColor(s string) (color.NRGBA, error) {
	c := color.NRGBA{A: 0xff}
	var err error
	switch len(s) {
	case 7:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 4:
		_, err = fmt.Sscanf(s, "#%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R *= 17
		c.G *= 17
		c.B *= 17
	default:
		err = fmt.Errorf("want #rrggbb or #rgb")
	}
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("parsing color %q: %w", s, err)
	}
	return c, nil
}
