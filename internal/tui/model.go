package tui

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/Mr-Dark-debug/veridian/internal/analysis"
	"github.com/Mr-Dark-debug/veridian/internal/config"
	"github.com/Mr-Dark-debug/veridian/internal/database"
	"github.com/Mr-Dark-debug/veridian/internal/effects"
	"github.com/Mr-Dark-debug/veridian/internal/i18n"
)

// Layout constants, in terminal cells.
const (
	sidePaneWidth    = 34
	sidePaneMinWidth = 100
	diffPaneHeight   = 8
)

// statTargets are the landing counters shown in the stats strip.
var statTargets = []struct {
	label  string
	target int
	suffix string
}{
	{"stats.servers", 120, "+"},
	{"stats.tickets", 25000, "+"},
	{"stats.languages", 30, ""},
}

// ────────────────────────────────────────────────────────────
// Model
// ────────────────────────────────────────────────────────────

// Options configures NewModel.
type Options struct {
	Config *config.Config

	// ConfigPath is watched for changes when set.
	ConfigPath string

	// SavePath receives the language picked with the l key. Empty keeps
	// the choice for this session only.
	SavePath string

	// Store lists recorded runs. Nil hides the run list.
	Store database.Store

	Logger *zap.Logger

	// Locale is the environment locale, such as $LANG.
	Locale string

	// Context stops the config watcher. Defaults to Background.
	Context context.Context
}

// Model is the root BubbleTea model for the Veridian TUI.
// State is organized by concern; rendering is delegated
// to component functions in separate files.
type Model struct {
	cfg        *config.Config
	configPath string
	savePath   string
	store      database.Store
	log        *zap.Logger
	ctx        context.Context
	reloads    chan configReloadedMsg

	// Animation
	stage    *stage
	page     *page
	elapsed  float64
	lastTick time.Time
	paused   bool

	// Landing effects
	catalog    *i18n.Catalog
	lang       string
	langSaves  int
	typewriter *effects.Typewriter
	subtitle   string
	counters   []statCounter

	// Runs
	runs        []*database.Run
	selectedRun int
	runDetail   *runDetail

	// UI state
	width     int
	height    int
	showRuns  bool
	showDiff  bool
	paramDiff []paramChange

	// Status
	toasts    toasts
	statusMsg string
	err       error
}

// NewModel creates a TUI model. The animator starts at a default size and
// is resized on the first window size message.
func NewModel(opts Options) (Model, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	seed := cfg.UI.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	pg := newPage(cfg.UI.FPS, cfg.UI.PageHeight)
	st, err := newStage(cfg.Animation, pg, seed, log.Named("gridtrace"), 80, 20)
	if err != nil {
		return Model{}, fmt.Errorf("creating stage: %w", err)
	}

	m := Model{
		cfg:        cfg,
		configPath: opts.ConfigPath,
		savePath:   opts.SavePath,
		store:      opts.Store,
		log:        log,
		ctx:        ctx,
		reloads:    make(chan configReloadedMsg, 1),
		stage:      st,
		page:       pg,
		typewriter: effects.NewTypewriter(),
	}
	m.setLanguage(i18n.Detect(cfg.UI.Language, opts.Locale), time.Now())
	m.statusMsg = fmt.Sprintf("seed %d", seed)
	return m, nil
}

// setLanguage loads a catalog and restarts the text effects with it.
func (m *Model) setLanguage(lang string, now time.Time) {
	catalog, err := i18n.Load(lang)
	if err != nil {
		m.log.Warn("loading catalog", zap.String("lang", lang), zap.Error(err))
		m.toasts = m.toasts.push(toastWarn, err.Error(), now)
	}
	m.catalog = catalog
	m.lang = catalog.Lang

	m.typewriter.SetPhrases(
		catalog.T("tagline.0"),
		catalog.T("tagline.1"),
		catalog.T("tagline.2"),
	)
	m.counters = m.counters[:0]
	for _, s := range statTargets {
		m.counters = append(m.counters, statCounter{
			counter: effects.NewCounter(s.target, s.suffix, catalog.Tag),
			label:   s.label,
		})
	}
}

// ────────────────────────────────────────────────────────────
// Messages
// ────────────────────────────────────────────────────────────

type frameMsg time.Time

type runsLoadedMsg []*database.Run

type runDetail struct {
	run   *database.Run
	stats *database.RunStats
	walk  *analysis.WalkReport
}

type runDetailLoadedMsg runDetail

type configReloadedMsg struct {
	cfg *config.Config
	err error
}

// langSavedMsg reports a finished language save.
type langSavedMsg struct{ err error }

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// ────────────────────────────────────────────────────────────
// Init
// ────────────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tick()}
	if m.configPath != "" {
		cmds = append(cmds, m.watchConfig(), m.waitReload())
	}
	return tea.Batch(cmds...)
}

func (m Model) tick() tea.Cmd {
	interval := time.Duration(float64(time.Second) / m.cfg.UI.FPS)
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// watchConfig starts the file watcher; reloads arrive via waitReload.
func (m Model) watchConfig() tea.Cmd {
	ctx, path, out := m.ctx, m.configPath, m.reloads
	return func() tea.Msg {
		go func() {
			send := func(msg configReloadedMsg) {
				select {
				case out <- msg:
				case <-ctx.Done():
				}
			}
			err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
				send(configReloadedMsg{cfg: cfg, err: err})
			})
			if err != nil {
				send(configReloadedMsg{err: err})
			}
		}()
		return nil
	}
}

func (m Model) waitReload() tea.Cmd {
	ctx, in := m.ctx, m.reloads
	return func() tea.Msg {
		select {
		case msg := <-in:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

// saveLanguage persists the language choice. The write also reaches the
// watcher, which reloads the same language and changes nothing.
func (m Model) saveLanguage(lang string) tea.Cmd {
	if m.savePath == "" {
		return nil
	}
	path, log := m.savePath, m.log
	return func() tea.Msg {
		err := config.SaveLanguage(path, lang)
		if err == nil {
			log.Debug("language saved", zap.String("lang", lang), zap.String("path", path))
		}
		return langSavedMsg{err}
	}
}

func (m Model) loadRuns() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		runs, err := store.QueryRuns(database.RunFilter{Limit: 100})
		if err != nil {
			return errMsg{err}
		}
		return runsLoadedMsg(runs)
	}
}

func (m Model) loadRunDetail(run *database.Run) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		stats, err := store.GetRunStats(run.RunID)
		if err != nil {
			return errMsg{err}
		}
		walk, err := analysis.NewAnalyzer(store).AnalyzeWalk(run.RunID, 0)
		if err != nil {
			return errMsg{err}
		}
		return runDetailLoadedMsg{run: run, stats: stats, walk: walk}
	}
}

// ────────────────────────────────────────────────────────────
// Update
// ────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case frameMsg:
		m.advance(time.Time(msg))
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case runsLoadedMsg:
		m.runs = []*database.Run(msg)
		m.selectedRun = 0
		m.runDetail = nil
		m.statusMsg = fmt.Sprintf("%d runs", len(m.runs))
		if len(m.runs) > 0 {
			return m, m.loadRunDetail(m.runs[0])
		}
		return m, nil

	case runDetailLoadedMsg:
		// Ignore answers for a run that is no longer selected.
		if m.selectedRun < len(m.runs) && m.runs[m.selectedRun].RunID == msg.run.RunID {
			d := runDetail(msg)
			m.runDetail = &d
		}
		return m, nil

	case configReloadedMsg:
		m.applyReload(msg)
		return m, m.waitReload()

	case langSavedMsg:
		m.langSaves = max(m.langSaves-1, 0)
		if msg.err != nil {
			return m.Update(errMsg{msg.err})
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		m.log.Error("tui", zap.Error(msg.err))
		m.toasts = m.toasts.push(toastError, msg.err.Error(), time.Now())
		return m, nil
	}

	return m, nil
}

// advance runs one animation frame at wall time now.
func (m *Model) advance(now time.Time) {
	if !m.lastTick.IsZero() && !m.paused {
		m.elapsed += float64(now.Sub(m.lastTick)) / float64(time.Millisecond)
	}
	m.lastTick = now
	m.toasts = m.toasts.expire(now)
	if m.paused {
		return
	}

	m.stage.step(m.elapsed)
	m.subtitle = m.typewriter.Step(m.elapsed)
	for _, c := range m.counters {
		c.counter.Step(m.elapsed)
	}
}

// layout sizes the stage to the space the panes leave.
func (m *Model) layout() {
	cols := m.width
	if m.width >= sidePaneMinWidth {
		cols -= sidePaneWidth
	}
	m.stage.resize(cols, m.stageRows())
}

func (m *Model) bodyHeight() int {
	h := m.height - 2 // header + footer
	if m.cfg.UI.ShowStats {
		h--
	}
	return max(h, 1)
}

func (m *Model) stageRows() int {
	rows := m.bodyHeight()
	if m.showDiff {
		rows -= diffPaneHeight
	}
	return max(rows, 1)
}

func (m *Model) applyReload(msg configReloadedMsg) {
	now := time.Now()
	if msg.err != nil {
		m.log.Warn("config reload rejected", zap.Error(msg.err))
		m.toasts = m.toasts.push(toastError, msg.err.Error(), now)
		return
	}

	cfg := msg.cfg
	diff := diffParams(m.stage.anim.Params(), cfg.Animation)
	rebuilt, err := m.stage.setParams(cfg.Animation)
	if err != nil {
		m.toasts = m.toasts.push(toastError, err.Error(), now)
		return
	}
	if rebuilt {
		m.layout()
	}

	m.page.height = cfg.UI.PageHeight
	m.page.scrollTo(m.page.target)
	// While a language save is in flight the file may still hold the
	// previous choice.
	if m.langSaves > 0 {
		cfg.UI.Language = m.lang
	} else if cfg.UI.Language != "" && cfg.UI.Language != m.lang {
		m.setLanguage(cfg.UI.Language, now)
	}
	showStats := m.cfg.UI.ShowStats
	m.cfg = cfg
	if cfg.UI.ShowStats != showStats {
		m.layout()
	}
	m.paramDiff = diff

	m.log.Info("config reloaded", zap.Int("changed", len(diff)), zap.Bool("rebuilt", rebuilt))
	m.toasts = m.toasts.push(toastInfo, m.catalog.T("toast.reloaded"), now)
}

// handleKey routes keyboard input based on current mode.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// ── Global ──

	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "l":
		i := slices.Index(i18n.Supported, m.lang)
		next := i18n.Supported[(i+1)%len(i18n.Supported)]
		m.setLanguage(next, time.Now())
		m.cfg.UI.Language = m.lang
		m.toasts = m.toasts.push(toastInfo, m.catalog.T("toast.lang"), time.Now())
		cmd := m.saveLanguage(m.lang)
		if cmd != nil {
			m.langSaves++
		}
		return m, cmd
	}

	// ── Run list mode ──

	if m.showRuns {
		switch key {
		case "j", "down":
			if m.selectedRun < len(m.runs)-1 {
				m.selectedRun++
				return m, m.loadRunDetail(m.runs[m.selectedRun])
			}
		case "k", "up":
			if m.selectedRun > 0 {
				m.selectedRun--
				return m, m.loadRunDetail(m.runs[m.selectedRun])
			}
		case "enter":
			if m.selectedRun < len(m.runs) {
				return m, m.loadRunDetail(m.runs[m.selectedRun])
			}
		case "esc", "r":
			m.showRuns = false
		}
		return m, nil
	}

	// ── Stage ──

	switch key {
	case "j", "down":
		m.page.scrollBy(m.cfg.UI.ScrollStep)
	case "k", "up":
		m.page.scrollBy(-m.cfg.UI.ScrollStep)
	case "pgdown", "f":
		_, h := m.page.Viewport()
		m.page.scrollBy(h)
	case "pgup", "b":
		_, h := m.page.Viewport()
		m.page.scrollBy(-h)
	case "g", "home":
		m.page.scrollTo(0)
	case "G", "end":
		m.page.scrollTo(m.page.maxScroll())
	case " ", "p":
		m.paused = !m.paused
	case "d":
		m.showDiff = !m.showDiff
		m.layout()
	case "s":
		m.cfg.UI.ShowStats = !m.cfg.UI.ShowStats
		m.layout()
	case "r":
		if m.store == nil {
			m.toasts = m.toasts.push(toastWarn, errNoStore.Error(), time.Now())
			return m, nil
		}
		m.showRuns = true
		return m, m.loadRuns()
	}
	return m, nil
}

var errNoStore = errors.New("no run database open")

// ────────────────────────────────────────────────────────────
// View
// ────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	parts := []string{renderHeader(&m)}
	if m.cfg.UI.ShowStats {
		parts = append(parts, renderStats(&m))
	}

	if m.showRuns {
		parts = append(parts, renderRunsLayout(&m, m.bodyHeight()))
	} else {
		parts = append(parts, m.renderStageLayout())
	}

	parts = append(parts, renderFooter(&m))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderStageLayout places the trace beside the transition log, with the
// reload diff underneath when toggled.
func (m Model) renderStageLayout() string {
	body := m.stage.view()
	if m.width >= sidePaneMinWidth {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body,
			renderTimelinePanel(&m, sidePaneWidth, m.stageRows()))
	}
	if m.showDiff {
		body = lipgloss.JoinVertical(lipgloss.Left, body,
			renderDiffPanel(&m, m.width, diffPaneHeight))
	}
	return body
}
