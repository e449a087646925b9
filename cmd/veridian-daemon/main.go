// Veridian Daemon: records the grid trace in real time and streams every
// frame to WebSocket viewers.
//
// Usage:
//
//	veridian-daemon [flags]
//
// Flags:
//
//	--config   Config file (default: ./veridian.yaml or the user config dir)
//	--db       Path to SQLite database file (default: recorder.db_path)
//	--metrics  HTTP address for metrics (default: recorder.metrics_addr)
//	--stream   WebSocket address, empty disables streaming (default: stream.addr)
//	--remote   Let the first viewer's scroll position drive the walk
//	--label    Label stored with the run
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mr-Dark-debug/veridian/internal/config"
	"github.com/Mr-Dark-debug/veridian/internal/database"
	"github.com/Mr-Dark-debug/veridian/internal/logger"
	"github.com/Mr-Dark-debug/veridian/internal/recorder"
	"github.com/Mr-Dark-debug/veridian/internal/stream"
)

type options struct {
	configPath string
	dbPath     string
	metrics    string
	stream     string
	remote     bool
	label      string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Config file")
	flag.StringVar(&opts.dbPath, "db", "", "Path to SQLite database file")
	flag.StringVar(&opts.metrics, "metrics", "", "Metrics HTTP address")
	flag.StringVar(&opts.stream, "stream", "", "WebSocket listen address")
	flag.BoolVar(&opts.remote, "remote", false, "Drive the scroll from viewer messages")
	flag.StringVar(&opts.label, "label", "daemon", "Label stored with the run")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("veridian-daemon: %v", err)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.dbPath != "" {
		cfg.Recorder.DBPath = opts.dbPath
	}
	if opts.metrics != "" {
		cfg.Recorder.MetricsAddr = opts.metrics
	}
	if opts.stream != "" {
		cfg.Stream.Addr = opts.stream
	}
	if opts.label != "" {
		cfg.Recorder.Label = opts.label
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.remote && cfg.Stream.Addr == "" {
		return errors.New("--remote needs a stream address")
	}

	if err := logger.InitWithFileConfig(cfg.Logging.Level, cfg.Logging.File, true); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	// Ensure the database directory exists
	dbDir := filepath.Dir(cfg.Recorder.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dbDir, err)
	}

	store, err := database.NewDBService(cfg.Recorder.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer store.Close()

	var (
		hub      *stream.Hub
		recOpts  = []recorder.Option{recorder.WithLogger(logger.Named("recorder"))}
		hostName = "script"
	)
	if cfg.Stream.Addr != "" {
		host := stream.NewRemoteHost(cfg.Recorder.Width, cfg.Recorder.Height)
		hub = stream.NewHub(cfg.Stream, host, stream.WithLogger(logger.Named("stream")))
		recOpts = append(recOpts, recorder.WithPublisher(hub))
		if opts.remote {
			recOpts = append(recOpts, recorder.WithHost(host))
			hostName = "remote"
		}
	}

	rec, err := recorder.New(cfg.Recorder, cfg.Animation, store, recOpts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rec.Start(ctx); err != nil {
		return fmt.Errorf("starting recorder: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if hub != nil {
		g.Go(func() error { return hub.Run(gctx) })
	}
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return rec.Stop()
		case <-rec.Done():
			stop()
			return rec.Wait()
		}
	})

	// Print startup banner
	fmt.Println()
	fmt.Println("  VERIDIAN DAEMON")
	fmt.Println()
	fmt.Printf("  Run:     %s (seed %d)\n", rec.RunID(), rec.Seed())
	fmt.Printf("  Scroll:  %s\n", hostName)
	fmt.Printf("  DB:      %s\n", cfg.Recorder.DBPath)
	if addr := rec.MetricsAddr(); addr != "" {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}
	if hub != nil {
		fmt.Printf("  Stream:  ws://%s%s\n", cfg.Stream.Addr, cfg.Stream.Path)
	}
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop.")
	fmt.Println()

	err = g.Wait()
	m := rec.Metrics()
	logger.Info("daemon stopped",
		zap.Int64("frames", m.Frames),
		zap.Int64("transitions", m.Transitions))
	if err != nil {
		return err
	}
	fmt.Println("  Done.")
	return nil
}
