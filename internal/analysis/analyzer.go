// Package analysis provides deterministic statistics over recorded grid
// trace runs. Everything is computed from stored transitions with plain
// arithmetic; nothing is sampled.
//
// Key capabilities:
//   - Direction distribution, reversal and revisit rates
//   - Straight-run lengths
//   - Transition interval outliers via Z-score analysis
//   - Scroll-following via linear regression of vertical moves on scroll velocity
package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/veridian/internal/database"
	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
	"github.com/Mr-Dark-debug/veridian/pkg/timeutil"
)

// Warning thresholds.
const (
	MaxReversalRate = 0.10
	MaxRevisitRate  = 0.40
)

// Analyzer computes walk statistics from a run store.
type Analyzer struct {
	store database.Store
}

// NewAnalyzer creates a new analysis engine backed by the given store.
func NewAnalyzer(store database.Store) *Analyzer {
	return &Analyzer{store: store}
}

// ============================================================
// Walk Shape
// ============================================================

// WalkReport summarises the shape of a walk.
type WalkReport struct {
	Transitions int            `json:"transitions"`
	Moves       int            `json:"moves"`
	Stalls      int            `json:"stalls"`
	Directions  map[string]int `json:"directions"`

	Reversals     int     `json:"reversals"`
	ReversalRate  float64 `json:"reversal_rate"`
	Revisits      int     `json:"revisits"`
	RevisitRate   float64 `json:"revisit_rate"`
	RevisitWindow int     `json:"revisit_window"`

	StraightMoves   int     `json:"straight_moves"`
	StraightRate    float64 `json:"straight_rate"`
	LongestStraight int     `json:"longest_straight"`
	MeanStraight    float64 `json:"mean_straight"`
}

// AnalyzeWalk reports direction statistics for a run. window is the
// revisit history length; zero reads it from the run's stored params.
func (a *Analyzer) AnalyzeWalk(runID string, window int) (*WalkReport, error) {
	trs, err := a.store.QueryTransitions(runID)
	if err != nil {
		return nil, fmt.Errorf("querying transitions for walk analysis: %w", err)
	}
	if window <= 0 {
		window = a.visitedWindow(runID)
	}
	return summarizeWalk(trs, window), nil
}

// visitedWindow recovers VisitedCapacity from the run's params JSON.
func (a *Analyzer) visitedWindow(runID string) int {
	p := gridtrace.DefaultParams()
	run, err := a.store.GetRun(runID)
	if err == nil && run.Params != nil {
		_ = json.Unmarshal([]byte(*run.Params), &p)
	}
	if p.VisitedCapacity <= 0 {
		return gridtrace.DefaultParams().VisitedCapacity
	}
	return p.VisitedCapacity
}

// summarizeWalk replays the transition log. A stall neither moves the
// head nor changes the previous direction.
func summarizeWalk(trs []*database.TransitionRecord, window int) *WalkReport {
	r := &WalkReport{
		Transitions:   len(trs),
		Directions:    map[string]int{},
		RevisitWindow: window,
	}

	var (
		last   gridtrace.Dir
		recent []gridtrace.Cell
		run    int
		runs   []int
	)
	endRun := func() {
		if run > 0 {
			runs = append(runs, run)
		}
		run = 0
	}

	for _, tr := range trs {
		if tr.Stalled {
			r.Stalls++
			continue
		}
		r.Moves++
		d := gridtrace.Dir{DI: tr.DI, DJ: tr.DJ}
		r.Directions[d.String()]++

		to := gridtrace.Cell{I: tr.ToI, J: tr.ToJ}
		for _, c := range recent {
			if c == to {
				r.Revisits++
				break
			}
		}
		if window > 0 {
			recent = append(recent, gridtrace.Cell{I: tr.FromI, J: tr.FromJ})
			if len(recent) > window {
				recent = recent[1:]
			}
		}

		switch {
		case last.IsZero():
			run = 1
		case d == last:
			r.StraightMoves++
			run++
		default:
			if d == last.Reverse() {
				r.Reversals++
			}
			endRun()
			run = 1
		}
		last = d
	}
	endRun()

	if r.Moves > 0 {
		m := float64(r.Moves)
		r.ReversalRate = round(float64(r.Reversals)/m, 4)
		r.RevisitRate = round(float64(r.Revisits)/m, 4)
		r.StraightRate = round(float64(r.StraightMoves)/m, 4)
	}
	if len(runs) > 0 {
		sum := 0
		for _, n := range runs {
			sum += n
			r.LongestStraight = max(r.LongestStraight, n)
		}
		r.MeanStraight = round(float64(sum)/float64(len(runs)), 2)
	}
	return r
}

// ============================================================
// Interval Outliers
// ============================================================

// IntervalOutlier is a transition that came unusually early or late.
type IntervalOutlier struct {
	Seq        int64   `json:"seq"`
	AtMs       float64 `json:"at_ms"`
	IntervalMs float64 `json:"interval_ms"`
	ScrollVel  float64 `json:"scroll_vel"`
	ZScore     float64 `json:"z_score"`
	Severity   string  `json:"severity"` // "low", "medium", "high"
}

// DetectIntervalOutliers computes the Z-score of the time between
// consecutive transitions. Fast scrolling shortens intervals, so the
// outliers usually line up with scroll bursts or dropped frames.
//
// |Z| > 1.5 is reported as "low", > 2 as "medium", > 3 as "high".
func (a *Analyzer) DetectIntervalOutliers(runID string) ([]IntervalOutlier, error) {
	trs, err := a.store.QueryTransitions(runID)
	if err != nil {
		return nil, fmt.Errorf("querying transitions for interval analysis: %w", err)
	}
	return intervalOutliers(trs), nil
}

func intervalOutliers(trs []*database.TransitionRecord) []IntervalOutlier {
	if len(trs) < 3 {
		return nil
	}

	intervals := make([]float64, len(trs)-1)
	var sum float64
	for i := 1; i < len(trs); i++ {
		d := trs[i].AtMs - trs[i-1].AtMs
		intervals[i-1] = d
		sum += d
	}

	n := float64(len(intervals))
	mean := sum / n
	var ss float64
	for _, d := range intervals {
		ss += (d - mean) * (d - mean)
	}
	stddev := math.Sqrt(ss / n)
	if stddev < 1e-9 {
		// All intervals equal: no outliers.
		return nil
	}

	var out []IntervalOutlier
	for i, d := range intervals {
		z := (d - mean) / stddev
		az := math.Abs(z)
		if az <= 1.5 {
			continue
		}
		severity := "low"
		if az > 3.0 {
			severity = "high"
		} else if az > 2.0 {
			severity = "medium"
		}
		tr := trs[i+1]
		out = append(out, IntervalOutlier{
			Seq:        tr.Seq,
			AtMs:       tr.AtMs,
			IntervalMs: round(d, 2),
			ScrollVel:  round(tr.ScrollVel, 2),
			ZScore:     round(z, 2),
			Severity:   severity,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return math.Abs(out[i].ZScore) > math.Abs(out[j].ZScore)
	})
	return out
}

// ============================================================
// Scroll Following
// ============================================================

// ScrollFollowReport fits vertical move direction (+1 down, -1 up, 0
// sideways) against scroll velocity. A positive slope means the trace
// tends to move the way the page scrolls.
type ScrollFollowReport struct {
	Samples   int     `json:"samples"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	Follows   bool    `json:"follows"`
}

// minFollowSamples is the fewest moves needed before Follows can be true.
const minFollowSamples = 10

// dataPoint is one (x, y) observation for regression analysis.
type dataPoint struct {
	x float64
	y float64
}

// AnalyzeScrollFollow runs the regression over a run's non-stalled moves.
func (a *Analyzer) AnalyzeScrollFollow(runID string) (*ScrollFollowReport, error) {
	trs, err := a.store.QueryTransitions(runID)
	if err != nil {
		return nil, fmt.Errorf("querying transitions for scroll analysis: %w", err)
	}
	return scrollFollow(trs), nil
}

func scrollFollow(trs []*database.TransitionRecord) *ScrollFollowReport {
	var points []dataPoint
	for _, tr := range trs {
		if tr.Stalled {
			continue
		}
		points = append(points, dataPoint{x: tr.ScrollVel, y: float64(tr.DJ)})
	}

	slope, intercept, rSquared := linearRegression(points)
	return &ScrollFollowReport{
		Samples:   len(points),
		Slope:     round(slope, 4),
		Intercept: round(intercept, 4),
		RSquared:  round(rSquared, 4),
		Follows:   len(points) >= minFollowSamples && slope > 0,
	}
}

// linearRegression computes ordinary least squares regression.
// Returns slope (m), intercept (b), and R-squared goodness of fit.
func linearRegression(points []dataPoint) (slope, intercept, rSquared float64) {
	n := float64(len(points))
	if n < 2 {
		return 0, 0, 0
	}

	var sumX, sumY, sumXY, sumX2 float64
	for _, p := range points {
		sumX += p.x
		sumY += p.y
		sumXY += p.x * p.y
		sumX2 += p.x * p.x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, sumY / n, 0
	}

	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssRes, ssTot float64
	for _, p := range points {
		predicted := slope*p.x + intercept
		ssRes += (p.y - predicted) * (p.y - predicted)
		ssTot += (p.y - meanY) * (p.y - meanY)
	}

	if ssTot == 0 {
		rSquared = 1.0
	} else {
		rSquared = 1 - ssRes/ssTot
	}

	return slope, intercept, rSquared
}

// ============================================================
// Full Analysis Report
// ============================================================

// AnalysisReport is the complete output of `veridian analyze`.
type AnalysisReport struct {
	RunID            string              `json:"run_id"`
	GeneratedAt      string              `json:"generated_at"`
	Run              *database.Run       `json:"run"`
	Stats            *database.RunStats  `json:"stats"`
	Walk             *WalkReport         `json:"walk"`
	IntervalOutliers []IntervalOutlier   `json:"interval_outliers"`
	ScrollFollow     *ScrollFollowReport `json:"scroll_follow"`
	Warnings         []string            `json:"warnings"`
}

// FullAnalysis runs every pass over one run.
func (a *Analyzer) FullAnalysis(runID string) (*AnalysisReport, error) {
	report := &AnalysisReport{
		RunID:       runID,
		GeneratedAt: time.Now().Format(time.RFC3339),
	}

	run, err := a.store.GetRun(runID)
	if err != nil {
		return nil, fmt.Errorf("loading run: %w", err)
	}
	report.Run = run

	stats, err := a.store.GetRunStats(runID)
	if err != nil {
		return nil, fmt.Errorf("gathering run stats: %w", err)
	}
	report.Stats = stats

	trs, err := a.store.QueryTransitions(runID)
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}

	report.Walk = summarizeWalk(trs, a.visitedWindow(runID))
	report.IntervalOutliers = intervalOutliers(trs)
	report.ScrollFollow = scrollFollow(trs)
	report.Warnings = warningsFor(report)

	return report, nil
}

func warningsFor(r *AnalysisReport) []string {
	var ws []string
	w := r.Walk
	if w == nil {
		return nil
	}
	if w.Moves == 0 {
		ws = append(ws, "No moves recorded; the run may have been too short.")
	}
	if w.ReversalRate > MaxReversalRate {
		ws = append(ws, fmt.Sprintf("⚠ HIGH REVERSAL RATE: %.1f%% of moves doubled back (limit %.0f%%).",
			w.ReversalRate*100, MaxReversalRate*100))
	}
	if w.RevisitRate > MaxRevisitRate {
		ws = append(ws, fmt.Sprintf("⚠ HIGH REVISIT RATE: %.1f%% of moves returned to one of the last %d cells (limit %.0f%%).",
			w.RevisitRate*100, w.RevisitWindow, MaxRevisitRate*100))
	}
	if w.Stalls > 0 {
		ws = append(ws, fmt.Sprintf("⚠ %d stalled transition(s): the head was boxed in by the viewport bounds.", w.Stalls))
	}
	for _, o := range r.IntervalOutliers {
		if o.Severity == "high" {
			ws = append(ws, fmt.Sprintf("⚠ INTERVAL OUTLIER: transition #%d after %.0fms (Z-score: %.2f, scroll %.1f).",
				o.Seq, o.IntervalMs, o.ZScore, o.ScrollVel))
		}
	}
	return ws
}

// FormatReport generates a human-readable markdown report.
func (a *Analyzer) FormatReport(report *AnalysisReport) string {
	var b strings.Builder

	b.WriteString("# Veridian Run Analysis\n\n")
	b.WriteString(fmt.Sprintf("**Run ID:** `%s`\n", report.RunID))
	if report.Run != nil {
		if report.Run.Label != "" {
			b.WriteString(fmt.Sprintf("**Label:** %s\n", report.Run.Label))
		}
		b.WriteString(fmt.Sprintf("**Started:** %s\n", timeutil.FormatTimestampFull(report.Run.StartTime)))
		b.WriteString(fmt.Sprintf("**Viewport:** %.0f×%.0f @ %.0f fps, seed %d\n",
			report.Run.Width, report.Run.Height, report.Run.FPS, report.Run.Seed))
	}
	b.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt))

	if s := report.Stats; s != nil {
		b.WriteString("## Summary\n\n")
		b.WriteString("| Metric | Value |\n")
		b.WriteString("|--------|-------|\n")
		b.WriteString(fmt.Sprintf("| Transitions | %d |\n", s.Transitions))
		b.WriteString(fmt.Sprintf("| Stalls | %d |\n", s.Stalls))
		b.WriteString(fmt.Sprintf("| Distinct Cells | %d |\n", s.DistinctCells))
		b.WriteString(fmt.Sprintf("| Frame Samples | %d |\n", s.FrameSamples))
		b.WriteString(fmt.Sprintf("| Mean Scroll Speed | %.2f |\n", s.MeanScrollVel))
		b.WriteString(fmt.Sprintf("| Max Scroll Speed | %.2f |\n", s.MaxScrollVel))
		b.WriteString(fmt.Sprintf("| Duration | %s |\n\n", timeutil.FormatDuration(int64(s.DurationMs))))
	}

	if w := report.Walk; w != nil {
		b.WriteString("## Walk Shape\n\n")
		b.WriteString("| Direction | Moves |\n")
		b.WriteString("|-----------|-------|\n")
		for _, d := range gridtrace.Directions {
			b.WriteString(fmt.Sprintf("| %s | %d |\n", d, w.Directions[d.String()]))
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("- **Reversal Rate:** %.1f%% (%d)\n", w.ReversalRate*100, w.Reversals))
		b.WriteString(fmt.Sprintf("- **Revisit Rate:** %.1f%% (%d, window %d)\n", w.RevisitRate*100, w.Revisits, w.RevisitWindow))
		b.WriteString(fmt.Sprintf("- **Straight Rate:** %.1f%%\n", w.StraightRate*100))
		b.WriteString(fmt.Sprintf("- **Straight Runs:** longest %d, mean %.2f\n\n", w.LongestStraight, w.MeanStraight))
	}

	if len(report.IntervalOutliers) > 0 {
		b.WriteString("## Interval Outliers\n\n")
		b.WriteString("| Seq | At | Interval | Scroll | Z-Score | Severity |\n")
		b.WriteString("|-----|----|----------|--------|---------|----------|\n")
		for _, o := range report.IntervalOutliers {
			b.WriteString(fmt.Sprintf("| %d | %s | %.0fms | %.1f | %.2f | %s |\n",
				o.Seq, timeutil.FormatOffset(o.AtMs), o.IntervalMs, o.ScrollVel, o.ZScore, o.Severity))
		}
		b.WriteString("\n")
	}

	if sf := report.ScrollFollow; sf != nil {
		b.WriteString("## Scroll Following\n\n")
		b.WriteString(fmt.Sprintf("- **Samples:** %d\n", sf.Samples))
		b.WriteString(fmt.Sprintf("- **Slope:** %.4f per unit of velocity\n", sf.Slope))
		b.WriteString(fmt.Sprintf("- **R² Fit:** %.3f\n", sf.RSquared))
		if sf.Follows {
			b.WriteString("- The trace leans in the scroll direction.\n")
		}
		b.WriteString("\n")
	}

	if len(report.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range report.Warnings {
			b.WriteString(fmt.Sprintf("- %s\n", w))
		}
	}

	return b.String()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
