package tui

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-Dark-debug/veridian/internal/config"
	"github.com/Mr-Dark-debug/veridian/internal/database"
	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
	"github.com/Mr-Dark-debug/veridian/internal/i18n"
	"github.com/Mr-Dark-debug/veridian/internal/recorder"
)

func testModel(t *testing.T, store database.Store) Model {
	t.Helper()
	cfg := config.Default()
	cfg.UI.Seed = 1
	cfg.UI.Language = "en"
	m, err := NewModel(Options{Config: cfg, Store: store})
	require.NoError(t, err)
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// runFrames feeds n frame ticks spaced by step, starting at start.
func runFrames(t *testing.T, m Model, start time.Time, step time.Duration, n int) Model {
	t.Helper()
	for i := 0; i < n; i++ {
		m, _ = update(t, m, frameMsg(start.Add(time.Duration(i)*step)))
	}
	return m
}

func TestViewBeforeWindowSize(t *testing.T) {
	m := testModel(t, nil)
	assert.Equal(t, "Initializing...", m.View())
}

func TestResizeAndFrames(t *testing.T) {
	m := testModel(t, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120-sidePaneWidth, m.stage.cols)
	assert.Equal(t, 40-3, m.stage.rows)

	m = runFrames(t, m, time.Unix(100, 0), 100*time.Millisecond, 20)
	assert.Equal(t, int64(20), m.stage.anim.Frames())
	assert.InDelta(t, 1900, m.elapsed, 1e-6)

	view := m.View()
	assert.Contains(t, view, "VERIDIAN AI")
	assert.Contains(t, view, "frames 20")
}

func TestNarrowWindowHidesLog(t *testing.T) {
	m := testModel(t, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	assert.Equal(t, 80, m.stage.cols)
}

func TestScrollKeys(t *testing.T) {
	m := testModel(t, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, _ = update(t, m, key("j"))
	assert.Equal(t, m.cfg.UI.ScrollStep, m.page.target)

	m, _ = update(t, m, key("k"))
	assert.Equal(t, 0.0, m.page.target)

	m, _ = update(t, m, key("k"))
	assert.Equal(t, 0.0, m.page.target, "scroll is clamped at the top")

	m, _ = update(t, m, key("G"))
	assert.Equal(t, m.page.maxScroll(), m.page.target)
	assert.Greater(t, m.page.target, 0.0)

	m, _ = update(t, m, key("g"))
	assert.Equal(t, 0.0, m.page.target)
}

func TestPauseFreezesAnimation(t *testing.T) {
	m := testModel(t, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	start := time.Unix(100, 0)
	m = runFrames(t, m, start, 50*time.Millisecond, 10)
	frames, elapsed := m.stage.anim.Frames(), m.elapsed

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.True(t, m.paused)
	m = runFrames(t, m, start.Add(time.Second), 50*time.Millisecond, 10)

	assert.Equal(t, frames, m.stage.anim.Frames())
	assert.Equal(t, elapsed, m.elapsed)
	assert.Contains(t, m.View(), "Paused")

	m, _ = update(t, m, key("p"))
	m = runFrames(t, m, start.Add(2*time.Second), 50*time.Millisecond, 2)
	assert.Equal(t, frames+2, m.stage.anim.Frames())
}

func TestRunsWithoutStore(t *testing.T) {
	m := testModel(t, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, cmd := update(t, m, key("r"))
	assert.Nil(t, cmd)
	assert.False(t, m.showRuns)

	toast, ok := m.toasts.current()
	require.True(t, ok)
	assert.Equal(t, toastWarn, toast.level)
}

func TestRunList(t *testing.T) {
	store, err := database.NewDBService(":memory:")
	require.NoError(t, err)
	defer store.Close()

	rcfg := recorder.DefaultConfig()
	rcfg.DBPath = ":memory:"
	rcfg.MetricsAddr = ""
	rcfg.Seed = 3
	rcfg.Label = "landing"
	rec, err := recorder.New(rcfg, gridtrace.DefaultParams(), store)
	require.NoError(t, err)
	require.NoError(t, rec.Simulate(300))

	m := testModel(t, store)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, cmd := update(t, m, key("r"))
	require.NotNil(t, cmd)
	assert.True(t, m.showRuns)

	m, cmd = update(t, m, cmd())
	require.Len(t, m.runs, 1)
	require.NotNil(t, cmd, "first run detail is loaded")

	m, _ = update(t, m, cmd())
	require.NotNil(t, m.runDetail)
	assert.Equal(t, rec.RunID(), m.runDetail.run.RunID)
	require.NotNil(t, m.runDetail.stats)
	require.NotNil(t, m.runDetail.walk)

	view := m.View()
	assert.Contains(t, view, "Recorded Runs")
	assert.Contains(t, view, "landing")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showRuns)
}

func TestStaleRunDetailIgnored(t *testing.T) {
	m := testModel(t, nil)
	m.runs = []*database.Run{{RunID: "a"}, {RunID: "b"}}
	m.selectedRun = 1

	m, _ = update(t, m, runDetailLoadedMsg{run: &database.Run{RunID: "a"}})
	assert.Nil(t, m.runDetail)
}

func TestLanguageCycle(t *testing.T) {
	m := testModel(t, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	require.Equal(t, "en", m.lang)

	m, _ = update(t, m, key("l"))
	assert.Equal(t, i18n.Supported[1], m.lang)

	toast, ok := m.toasts.current()
	require.True(t, ok)
	assert.Equal(t, m.catalog.T("toast.lang"), toast.text)

	for range len(i18n.Supported) - 1 {
		m, _ = update(t, m, key("l"))
	}
	assert.Equal(t, "en", m.lang)
}

func TestConfigReloadAppliesParams(t *testing.T) {
	m := testModel(t, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	anim := m.stage.anim

	cfg := config.Default()
	cfg.UI.Language = "en"
	cfg.Animation.BaseAlpha = 0.3

	m, cmd := update(t, m, configReloadedMsg{cfg: cfg})
	assert.NotNil(t, cmd, "waits for the next reload")
	assert.Same(t, anim, m.stage.anim)
	assert.Equal(t, 0.3, m.stage.anim.Params().BaseAlpha)
	require.Len(t, m.paramDiff, 1)
	assert.Equal(t, "base_alpha", m.paramDiff[0].key)

	toast, ok := m.toasts.current()
	require.True(t, ok)
	assert.Equal(t, toastInfo, toast.level)
}

func TestConfigReloadRebuildsOnCellSize(t *testing.T) {
	m := testModel(t, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = runFrames(t, m, time.Unix(100, 0), 500*time.Millisecond, 6)
	anim := m.stage.anim

	cfg := config.Default()
	cfg.UI.Language = "en"
	cfg.Animation.CellSize = 90

	m, _ = update(t, m, configReloadedMsg{cfg: cfg})
	assert.NotSame(t, anim, m.stage.anim)
	assert.Equal(t, 90.0, m.stage.anim.Params().CellSize)
	assert.Empty(t, m.stage.recent)
	assert.Equal(t, 120-sidePaneWidth, m.stage.cols)
}

func TestConfigReloadError(t *testing.T) {
	m := testModel(t, nil)
	before := m.cfg

	m, _ = update(t, m, configReloadedMsg{err: errors.New("bad yaml")})
	assert.Same(t, before, m.cfg)

	toast, ok := m.toasts.current()
	require.True(t, ok)
	assert.Equal(t, toastError, toast.level)
	assert.Equal(t, "bad yaml", toast.text)
}

func TestToastsExpire(t *testing.T) {
	now := time.Unix(0, 0)
	var q toasts
	q = q.push(toastInfo, "one", now)
	q = q.push(toastWarn, "two", now.Add(time.Second))

	cur, ok := q.current()
	require.True(t, ok)
	assert.Equal(t, "two", cur.text)

	q = q.expire(now.Add(toastTTL + 500*time.Millisecond))
	require.Len(t, q, 1)
	assert.Equal(t, "two", q[0].text)

	q = q.expire(now.Add(2 * toastTTL))
	_, ok = q.current()
	assert.False(t, ok)
}

func TestDiffParams(t *testing.T) {
	a := gridtrace.DefaultParams()
	b := a
	b.Smoothing = 0.2
	b.StepInterval = time.Second

	changes := diffParams(a, b)
	require.Len(t, changes, 2)
	assert.Equal(t, "smoothing", changes[0].key)
	assert.Equal(t, "0.2", changes[0].after)
	assert.Equal(t, "step_interval", changes[1].key)
	assert.Equal(t, "1s", changes[1].after)

	assert.Empty(t, diffParams(a, a))
}

func TestPageSpringSettles(t *testing.T) {
	p := newPage(60, 1000)
	p.setViewport(100, 200)

	p.scrollTo(5000)
	assert.Equal(t, 800.0, p.target)

	p.scrollTo(300)
	for i := 0; i < 600 && !p.settled(); i++ {
		p.update()
		assert.LessOrEqual(t, p.pos, 300.0+1e-6, "critically damped spring does not overshoot")
	}
	assert.True(t, p.settled())
	assert.Equal(t, 300.0, p.ScrollY())
}

func TestRampGlyph(t *testing.T) {
	r := rampFor(gridtrace.DefaultParams())
	assert.Equal(t, " ", r.glyph(0, false))
	assert.Contains(t, r.glyph(1, false), "█")
	assert.Equal(t, r.head, r.glyph(0, true))
}

func TestLanguageChoiceIsSaved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veridian.yaml")
	file := config.Default()
	file.UI.Language = "en"
	file.UI.ScrollStep = 200
	require.NoError(t, file.SaveTo(path))

	cfg := config.Default()
	cfg.UI.Seed = 1
	cfg.UI.Language = "en"
	m, err := NewModel(Options{Config: cfg, SavePath: path})
	require.NoError(t, err)

	m, cmd := update(t, m, key("l"))
	require.NotNil(t, cmd)
	assert.Equal(t, i18n.Supported[1], m.cfg.UI.Language)
	assert.Equal(t, 1, m.langSaves)

	// A reload of the not yet rewritten file keeps the new choice.
	m, _ = update(t, m, configReloadedMsg{cfg: file})
	assert.Equal(t, i18n.Supported[1], m.lang)

	m, _ = update(t, m, cmd())
	assert.Zero(t, m.langSaves)

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, i18n.Supported[1], saved.UI.Language)
	assert.Equal(t, 200.0, saved.UI.ScrollStep, "other settings are kept")

	// Once saved, the file is the source again.
	reloaded := config.Default()
	reloaded.UI.Language = "de"
	m, _ = update(t, m, configReloadedMsg{cfg: reloaded})
	assert.Equal(t, "de", m.lang)
}

func TestLanguageSaveFailureShowsError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cfg := config.Default()
	cfg.UI.Language = "en"
	m, err := NewModel(Options{Config: cfg, SavePath: filepath.Join(blocker, "veridian.yaml")})
	require.NoError(t, err)

	m, cmd := update(t, m, key("l"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Zero(t, m.langSaves)
	toast, ok := m.toasts.current()
	require.True(t, ok)
	assert.Equal(t, toastError, toast.level)
}
