package analysis

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/Mr-Dark-debug/veridian/internal/database"
	"github.com/Mr-Dark-debug/veridian/internal/driver"
	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
)

func TestLinearRegression(t *testing.T) {
	// Perfect linear: y = 2x + 1
	points := []dataPoint{
		{0, 1}, {1, 3}, {2, 5}, {3, 7}, {4, 9},
	}

	slope, intercept, rSquared := linearRegression(points)

	if math.Abs(slope-2.0) > 0.001 {
		t.Errorf("expected slope=2.0, got %.3f", slope)
	}
	if math.Abs(intercept-1.0) > 0.001 {
		t.Errorf("expected intercept=1.0, got %.3f", intercept)
	}
	if math.Abs(rSquared-1.0) > 0.001 {
		t.Errorf("expected R²=1.0, got %.3f", rSquared)
	}
}

func TestLinearRegressionNoisy(t *testing.T) {
	points := []dataPoint{
		{0, 1.1}, {1, 2.9}, {2, 5.2}, {3, 6.8}, {4, 9.1},
	}

	slope, _, rSquared := linearRegression(points)

	if slope < 1.5 || slope > 2.5 {
		t.Errorf("expected slope ≈ 2.0, got %.3f", slope)
	}
	if rSquared < 0.95 {
		t.Errorf("expected R² > 0.95, got %.3f", rSquared)
	}
}

func TestLinearRegressionConstant(t *testing.T) {
	points := []dataPoint{
		{0, 5}, {1, 5}, {2, 5}, {3, 5},
	}

	slope, intercept, rSquared := linearRegression(points)

	if math.Abs(slope) > 0.001 {
		t.Errorf("expected slope=0, got %.3f", slope)
	}
	if math.Abs(intercept-5.0) > 0.001 {
		t.Errorf("expected intercept=5.0, got %.3f", intercept)
	}
	if rSquared < 0.99 {
		t.Errorf("expected R²=1.0, got %.3f", rSquared)
	}
}

func TestLinearRegressionSinglePoint(t *testing.T) {
	points := []dataPoint{{0, 5}}
	slope, _, _ := linearRegression(points)

	if slope != 0 {
		t.Errorf("expected slope=0 for single point, got %.3f", slope)
	}
}

// walkFixture: right, right, left, stall, down, up from (0,0).
func walkFixture(runID string) []*database.TransitionRecord {
	mk := func(seq int64, at float64, fi, fj, di, dj int, stalled bool) *database.TransitionRecord {
		tr := &database.TransitionRecord{
			RunID: runID, Seq: seq, AtMs: at,
			FromI: fi, FromJ: fj, ToI: fi, ToJ: fj, Stalled: stalled,
		}
		if !stalled {
			tr.DI, tr.DJ = di, dj
			tr.ToI, tr.ToJ = fi+di, fj+dj
		}
		return tr
	}
	return []*database.TransitionRecord{
		mk(1, 470, 0, 0, 1, 0, false),
		mk(2, 940, 1, 0, 1, 0, false),
		mk(3, 1410, 2, 0, -1, 0, false),
		mk(4, 1880, 1, 0, 0, 0, true),
		mk(5, 2350, 1, 0, 0, 1, false),
		mk(6, 2820, 1, 1, 0, -1, false),
	}
}

func TestSummarizeWalk(t *testing.T) {
	r := summarizeWalk(walkFixture("r"), 8)

	if r.Transitions != 6 || r.Moves != 5 || r.Stalls != 1 {
		t.Fatalf("unexpected counts %+v", r)
	}
	want := map[string]int{"right": 2, "left": 1, "down": 1, "up": 1}
	for k, v := range want {
		if r.Directions[k] != v {
			t.Errorf("direction %s: expected %d, got %d", k, v, r.Directions[k])
		}
	}
	if r.Reversals != 2 || r.ReversalRate != 0.4 {
		t.Errorf("expected 2 reversals (0.4), got %d (%v)", r.Reversals, r.ReversalRate)
	}
	if r.Revisits != 2 || r.RevisitRate != 0.4 {
		t.Errorf("expected 2 revisits (0.4), got %d (%v)", r.Revisits, r.RevisitRate)
	}
	if r.StraightMoves != 1 || r.LongestStraight != 2 || r.MeanStraight != 1.25 {
		t.Errorf("unexpected straight stats %+v", r)
	}
}

func TestSummarizeWalkWindow(t *testing.T) {
	if r := summarizeWalk(walkFixture("r"), 1); r.Revisits != 2 {
		t.Errorf("window 1: expected 2 revisits, got %d", r.Revisits)
	}
	if r := summarizeWalk(walkFixture("r"), 0); r.Revisits != 0 {
		t.Errorf("window 0: expected no revisits, got %d", r.Revisits)
	}
	if r := summarizeWalk(nil, 8); r.Moves != 0 || r.ReversalRate != 0 {
		t.Errorf("empty walk: unexpected %+v", r)
	}
}

func TestIntervalOutliers(t *testing.T) {
	var trs []*database.TransitionRecord
	for i := 0; i <= 10; i++ {
		trs = append(trs, &database.TransitionRecord{Seq: int64(i + 1), AtMs: float64(i) * 470})
	}
	trs = append(trs, &database.TransitionRecord{Seq: 12, AtMs: 4850, ScrollVel: 40})

	out := intervalOutliers(trs)
	if len(out) != 1 {
		t.Fatalf("expected 1 outlier, got %d: %+v", len(out), out)
	}
	o := out[0]
	if o.Seq != 12 || o.IntervalMs != 150 || o.Severity != "high" || o.ZScore >= -3 {
		t.Errorf("unexpected outlier %+v", o)
	}

	if got := intervalOutliers(trs[:5]); got != nil {
		t.Errorf("uniform intervals should have no outliers, got %+v", got)
	}
}

func TestScrollFollow(t *testing.T) {
	var trs []*database.TransitionRecord
	for i := 0; i < 12; i++ {
		v, dj, di := 0.0, 0, 1
		switch i % 3 {
		case 0:
			v, dj, di = 12, 1, 0
		case 1:
			v, dj, di = -12, -1, 0
		}
		trs = append(trs, &database.TransitionRecord{Seq: int64(i + 1), ScrollVel: v, DI: di, DJ: dj})
	}
	trs = append(trs, &database.TransitionRecord{Seq: 13, ScrollVel: -50, Stalled: true})

	r := scrollFollow(trs)
	if r.Samples != 12 {
		t.Errorf("stalls must be excluded, got %d samples", r.Samples)
	}
	if r.Slope <= 0 || !r.Follows {
		t.Errorf("expected positive slope, got %+v", r)
	}
	if math.Abs(r.RSquared-1) > 1e-9 {
		t.Errorf("expected perfect fit, got R²=%v", r.RSquared)
	}

	if r := scrollFollow(trs[:4]); r.Follows {
		t.Error("too few samples should not report following")
	}
}

func newTestStore(t *testing.T) *database.DBService {
	t.Helper()
	svc, err := database.NewDBService(":memory:")
	if err != nil {
		t.Fatalf("NewDBService failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestFullAnalysis(t *testing.T) {
	svc := newTestStore(t)

	p := gridtrace.DefaultParams()
	p.VisitedCapacity = 1
	raw, _ := json.Marshal(p)
	params := string(raw)
	if err := svc.InsertRun(&database.Run{RunID: "run-1", Label: "fixture", StartTime: 1, Width: 1200, Height: 800, FPS: 60, Params: &params}); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}
	if err := svc.BatchInsertTransitions(walkFixture("run-1")); err != nil {
		t.Fatalf("BatchInsertTransitions failed: %v", err)
	}

	a := NewAnalyzer(svc)
	report, err := a.FullAnalysis("run-1")
	if err != nil {
		t.Fatalf("FullAnalysis failed: %v", err)
	}
	if report.Walk.RevisitWindow != 1 {
		t.Errorf("expected window from stored params, got %d", report.Walk.RevisitWindow)
	}
	if report.Stats.Transitions != 6 {
		t.Errorf("expected 6 transitions in stats, got %d", report.Stats.Transitions)
	}

	var reversal, stall bool
	for _, w := range report.Warnings {
		reversal = reversal || strings.Contains(w, "REVERSAL")
		stall = stall || strings.Contains(w, "stalled")
		if strings.Contains(w, "REVISIT") {
			t.Errorf("revisit rate at the limit must not warn: %s", w)
		}
	}
	if !reversal || !stall {
		t.Errorf("expected reversal and stall warnings, got %v", report.Warnings)
	}

	md := a.FormatReport(report)
	for _, want := range []string{"# Veridian Run Analysis", "`run-1`", "**Label:** fixture", "| right | 2 |", "## Warnings"} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q", want)
		}
	}

	if _, err := a.FullAnalysis("missing"); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestAnalyzeSimulatedRun(t *testing.T) {
	svc := newTestStore(t)
	if err := svc.InsertRun(&database.Run{RunID: "sim", StartTime: 1, Width: 1200, Height: 800, FPS: 60}); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}

	host := driver.DefaultScript(1200, 800)
	var trs []*database.TransitionRecord
	anim, err := gridtrace.New(host, nil, gridtrace.DefaultParams(),
		gridtrace.WithSeed(99),
		gridtrace.WithObserver(func(tr gridtrace.Transition) {
			trs = append(trs, &database.TransitionRecord{
				RunID: "sim", Seq: tr.Seq, AtMs: tr.At,
				FromI: tr.From.I, FromJ: tr.From.J, ToI: tr.To.I, ToJ: tr.To.J,
				DI: tr.Dir.DI, DJ: tr.Dir.DJ, ScrollVel: tr.ScrollVel,
				Candidates: tr.Candidates, Stalled: tr.Stalled,
			})
		}))
	if err != nil {
		t.Fatalf("gridtrace.New failed: %v", err)
	}
	driver.Simulate(host.Drive(anim), 60, 60*60, nil)

	if err := svc.BatchInsertTransitions(trs); err != nil {
		t.Fatalf("BatchInsertTransitions failed: %v", err)
	}

	walk, err := NewAnalyzer(svc).AnalyzeWalk("sim", 0)
	if err != nil {
		t.Fatalf("AnalyzeWalk failed: %v", err)
	}
	if walk.Moves+walk.Stalls != len(trs) {
		t.Errorf("moves %d + stalls %d != transitions %d", walk.Moves, walk.Stalls, len(trs))
	}
	sum := 0
	for _, n := range walk.Directions {
		sum += n
	}
	if sum != walk.Moves {
		t.Errorf("direction counts %d != moves %d", sum, walk.Moves)
	}
	if walk.ReversalRate > MaxReversalRate {
		t.Errorf("reversal rate %.3f above %.2f", walk.ReversalRate, MaxReversalRate)
	}
}
