// Package recorder runs a grid trace headless and persists what it does.
//
// Architecture:
//
//	Host (scroll script or remote browser) → Animator → observer → channels → batch flush → Store
//
// The frame loop never touches the database. Transitions and periodic
// frame samples go through buffered channels to a flush goroutine that
// commits every BatchSize records or FlushInterval, whichever comes first.
// A full channel falls back to a direct insert so nothing is lost.
package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mr-Dark-debug/veridian/internal/database"
	"github.com/Mr-Dark-debug/veridian/internal/driver"
	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
	"github.com/Mr-Dark-debug/veridian/pkg/timeutil"
)

// ErrAlreadyStarted is returned by a second Start or Simulate.
var ErrAlreadyStarted = errors.New("recorder already started")

// Config holds configuration for a recording.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path" json:"db_path"`

	// MetricsAddr is the HTTP address for metrics. Empty disables it.
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`

	// BatchSize is the maximum number of records buffered before a flush.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`

	// FPS is the frame rate of the headless loop.
	FPS float64 `yaml:"fps" json:"fps"`

	// SampleEvery stores a frame sample every N frames. 0 disables samples.
	SampleEvery int `yaml:"sample_every" json:"sample_every"`

	// Seed fixes the direction picks. 0 picks a random seed.
	Seed uint64 `yaml:"seed" json:"seed"`

	// Label is stored with the run for filtering.
	Label string `yaml:"label" json:"label"`

	// Width and Height are the synthetic viewport.
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`

	// Script is the scroll keyframe list. Empty uses driver.DefaultScript.
	Script []driver.Keyframe `yaml:"script,omitempty" json:"script,omitempty"`

	// Duration ends the run on its own. 0 records until stopped.
	Duration time.Duration `yaml:"duration" json:"duration"`
}

// DefaultConfig returns sensible defaults for recording.
func DefaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		DBPath:        filepath.Join(homeDir, ".veridian", "veridian.db"),
		MetricsAddr:   "127.0.0.1:9877",
		BatchSize:     256,
		FlushInterval: 500 * time.Millisecond,
		FPS:           60,
		SampleEvery:   15,
		Width:         1280,
		Height:        800,
	}
}

// Validate reports the first unusable field.
func (c Config) Validate() error {
	switch {
	case c.BatchSize < 1:
		return fmt.Errorf("recorder: batch_size must be >= 1, got %d", c.BatchSize)
	case c.FlushInterval <= 0:
		return fmt.Errorf("recorder: flush_interval must be > 0, got %s", c.FlushInterval)
	case c.FPS <= 0 || c.FPS > 1000:
		return fmt.Errorf("recorder: fps must be in (0, 1000], got %v", c.FPS)
	case c.SampleEvery < 0:
		return fmt.Errorf("recorder: sample_every must be >= 0, got %d", c.SampleEvery)
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("recorder: viewport must be positive, got %vx%v", c.Width, c.Height)
	case c.Duration < 0:
		return fmt.Errorf("recorder: duration must be >= 0, got %s", c.Duration)
	}
	return nil
}

// Publisher receives a snapshot after every frame. stream.Hub implements it.
type Publisher interface {
	Publish(s gridtrace.Snapshot)
}

// Metrics tracks recording throughput and errors.
type Metrics struct {
	RunID            string `json:"run_id"`
	Frames           int64  `json:"frames"`
	Transitions      int64  `json:"transitions"`
	Stalls           int64  `json:"stalls"`
	FrameSamples     int64  `json:"frame_samples"`
	DirectWrites     int64  `json:"direct_writes"`
	ErrorCount       int64  `json:"error_count"`
	BatchesCommitted int64  `json:"batches_committed"`
	Uptime           int64  `json:"uptime_seconds"`
}

type counters struct {
	frames, transitions, stalls, samples atomic.Int64
	direct, errors, batches              atomic.Int64
}

// Recorder drives one animator and stores one run.
type Recorder struct {
	config    Config
	params    gridtrace.Params
	store     database.Store
	host      gridtrace.Host
	publisher Publisher
	log       *zap.Logger

	runID   string
	seed    uint64
	anim    *gridtrace.Animator
	stepper driver.Stepper
	lastW   float64
	lastH   float64

	trChan    chan *database.TransitionRecord
	frameChan chan *database.FrameSample
	loopDone  chan struct{}

	// Offline mode writes synchronously from the calling goroutine.
	offline   bool
	pendingTr []*database.TransitionRecord
	pendingFr []*database.FrameSample

	metrics  counters
	latest   atomic.Pointer[gridtrace.Snapshot]
	listener net.Listener

	mu      sync.Mutex
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithHost replaces the scroll script with another host, such as a
// stream.RemoteHost fed by a browser.
func WithHost(h gridtrace.Host) Option {
	return func(r *Recorder) { r.host = h }
}

// WithPublisher forwards every frame's snapshot to p.
func WithPublisher(p Publisher) Option {
	return func(r *Recorder) { r.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.log = l
		}
	}
}

// New validates the configuration and prepares a recorder. Nothing runs
// until Start or Simulate.
func New(cfg Config, params gridtrace.Params, store database.Store, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("creating recorder: nil store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	r := &Recorder{
		config:    cfg,
		params:    params,
		store:     store,
		log:       zap.NewNop(),
		trChan:    make(chan *database.TransitionRecord, cfg.BatchSize*2),
		frameChan: make(chan *database.FrameSample, cfg.BatchSize*2),
		loopDone:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.host == nil {
		if len(cfg.Script) > 0 {
			r.host = driver.NewScrollScript(cfg.Width, cfg.Height, true, cfg.Script...)
		} else {
			r.host = driver.DefaultScript(cfg.Width, cfg.Height)
		}
	}

	r.seed = cfg.Seed
	if r.seed == 0 {
		r.seed = rand.Uint64()
	}
	return r, nil
}

// RunID is the identifier of the run, set once recording has begun.
func (r *Recorder) RunID() string { return r.runID }

// Seed is the seed actually used for direction picks.
func (r *Recorder) Seed() uint64 { return r.seed }

// begin creates the run row and the animator.
func (r *Recorder) begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started.IsZero() {
		return ErrAlreadyStarted
	}
	r.started = time.Now()
	id := uuid.NewString()
	r.log = r.log.With(zap.String("run_id", id))

	paramsJSON, err := json.Marshal(r.params)
	if err != nil {
		return fmt.Errorf("marshaling params: %w", err)
	}
	ps := string(paramsJSON)
	w, h := r.host.Viewport()
	run := &database.Run{
		RunID:     id,
		Label:     r.config.Label,
		Seed:      int64(r.seed),
		StartTime: timeutil.NowNano(),
		Status:    database.StatusRunning,
		Width:     w,
		Height:    h,
		FPS:       r.config.FPS,
		Params:    &ps,
	}
	if err := r.store.InsertRun(run); err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	r.runID = id

	anim, err := gridtrace.New(r.host, nil, r.params,
		gridtrace.WithSeed(r.seed),
		gridtrace.WithObserver(r.observe),
		gridtrace.WithLogger(r.log.Named("gridtrace")),
	)
	if err != nil {
		return err
	}
	r.anim = anim
	r.lastW, r.lastH = w, h

	var step driver.Stepper = anim
	if script, ok := r.host.(*driver.ScrollScript); ok {
		step = script.Drive(anim)
	}
	r.stepper = driver.StepperFunc(func(ts float64) int {
		r.checkResize()
		return step.Step(ts)
	})
	return nil
}

// checkResize runs on the frame goroutine so Animator.Resize never races
// with Step.
func (r *Recorder) checkResize() {
	w, h := r.host.Viewport()
	if w != r.lastW || h != r.lastH {
		r.lastW, r.lastH = w, h
		r.anim.Resize()
		r.log.Debug("viewport changed", zap.Float64("width", w), zap.Float64("height", h))
	}
}

// Start begins recording in the background.
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.begin(); err != nil {
		return r.abort(err)
	}

	if r.config.MetricsAddr != "" {
		ln, err := net.Listen("tcp", r.config.MetricsAddr)
		if err != nil {
			return r.abort(fmt.Errorf("listening on %s: %w", r.config.MetricsAddr, err))
		}
		r.listener = ln
	}

	loop, err := driver.NewLoop(r.stepper, r.config.FPS,
		driver.WithFrameFunc(r.onFrame),
		driver.WithLogger(r.log.Named("loop")),
	)
	if err != nil {
		return r.abort(err)
	}

	var cancel context.CancelFunc
	if r.config.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.config.Duration)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(r.loopDone)
		return loop.Run(gctx)
	})
	g.Go(func() error {
		r.flushLoop()
		return nil
	})
	if r.listener != nil {
		g.Go(func() error { return r.serveMetrics(gctx) })
	}

	go func() {
		r.finish(g.Wait())
	}()

	r.log.Info("recording started",
		zap.Uint64("seed", r.seed),
		zap.Float64("fps", r.config.FPS),
		zap.Duration("duration", r.config.Duration))
	return nil
}

// abort closes a run that failed to start. A second Start leaves the
// first run alone.
func (r *Recorder) abort(err error) error {
	if !errors.Is(err, ErrAlreadyStarted) {
		if r.listener != nil {
			r.listener.Close()
		}
		r.finish(err)
	}
	return err
}

// Stop ends the recording, flushes buffered records and closes the run.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return r.Wait()
}

// Wait blocks until the recording has ended and been flushed.
func (r *Recorder) Wait() error {
	<-r.done
	return r.err
}

// Done is closed once the run is finished.
func (r *Recorder) Done() <-chan struct{} { return r.done }

func (r *Recorder) finish(runErr error) {
	status := database.StatusCompleted
	if runErr != nil {
		status = database.StatusFailed
		r.log.Error("recording failed", zap.Error(runErr))
	}

	m := r.Metrics()
	if r.runID != "" {
		if err := r.store.FinishRun(r.runID, timeutil.NowNano(), status, m.Frames, m.Transitions); err != nil {
			r.log.Error("closing run", zap.Error(err))
			runErr = errors.Join(runErr, err)
		}
	}
	r.log.Info("recording finished",
		zap.String("status", status),
		zap.Int64("frames", m.Frames),
		zap.Int64("transitions", m.Transitions),
		zap.Int64("stalls", m.Stalls))

	r.err = runErr
	close(r.done)
}

// Simulate records frames synchronously with evenly spaced timestamps,
// without sleeping. The result is deterministic for a fixed seed.
func (r *Recorder) Simulate(frames int) error {
	if err := r.begin(); err != nil {
		return r.abort(err)
	}
	// Only the caller that won begin owns the run's frame goroutine.
	r.offline = true
	driver.Simulate(r.stepper, r.config.FPS, frames, r.onFrame)
	r.flushPending()
	r.finish(nil)
	return r.Wait()
}

// Metrics returns a snapshot of the current counters.
func (r *Recorder) Metrics() Metrics {
	m := Metrics{
		RunID:            r.runID,
		Frames:           r.metrics.frames.Load(),
		Transitions:      r.metrics.transitions.Load(),
		Stalls:           r.metrics.stalls.Load(),
		FrameSamples:     r.metrics.samples.Load(),
		DirectWrites:     r.metrics.direct.Load(),
		ErrorCount:       r.metrics.errors.Load(),
		BatchesCommitted: r.metrics.batches.Load(),
	}
	if !r.started.IsZero() {
		m.Uptime = int64(time.Since(r.started).Seconds())
	}
	return m
}

// Latest is the most recent frame snapshot, or nil before the first frame.
func (r *Recorder) Latest() *gridtrace.Snapshot {
	return r.latest.Load()
}

// MetricsAddr is the bound metrics address, useful with port 0.
func (r *Recorder) MetricsAddr() string {
	if r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}
