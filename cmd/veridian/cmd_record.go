package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mr-Dark-debug/veridian/internal/driver"
	"github.com/Mr-Dark-debug/veridian/internal/logger"
	"github.com/Mr-Dark-debug/veridian/internal/recorder"
)

var (
	recordSimulate int
	recordSeed     uint64
	recordDuration time.Duration
	recordLabel    string
	recordScript   string
	recordMetrics  string
)

// recordCmd records one run of the grid trace.
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a run headless",
	Long: `Record one run of the grid trace to the database.

With --simulate N the run is stepped N frames at the configured frame rate
without sleeping, which makes it reproducible for a fixed seed. Otherwise
frames are stepped in real time until --duration passes or Ctrl+C.`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().IntVar(&recordSimulate, "simulate", 0, "Step N frames without sleeping")
	recordCmd.Flags().Uint64Var(&recordSeed, "seed", 0, "Direction seed (0 picks one)")
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "Stop a real-time run after this long")
	recordCmd.Flags().StringVar(&recordLabel, "label", "", "Label stored with the run")
	recordCmd.Flags().StringVar(&recordScript, "script", "", `Scroll keyframes, e.g. "0s=0,2s=1200,4s=300"`)
	recordCmd.Flags().StringVar(&recordMetrics, "metrics", "", "Metrics HTTP address (overrides recorder.metrics_addr)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rc := cfg.Recorder
	if cmd.Flags().Changed("seed") {
		rc.Seed = recordSeed
	}
	if recordDuration > 0 {
		rc.Duration = recordDuration
	}
	if recordLabel != "" {
		rc.Label = recordLabel
	}
	if recordMetrics != "" {
		rc.MetricsAddr = recordMetrics
	}
	if recordScript != "" {
		frames, err := driver.ParseKeyframes(recordScript)
		if err != nil {
			return err
		}
		rc.Script = frames
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := recorder.New(rc, cfg.Animation, store, recorder.WithLogger(logger.Named("recorder")))
	if err != nil {
		return err
	}

	if recordSimulate > 0 {
		if err := rec.Simulate(recordSimulate); err != nil {
			return err
		}
		printRunSummary(rec)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rec.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("  Recording run %s (seed %d)\n", rec.RunID(), rec.Seed())
	if addr := rec.MetricsAddr(); addr != "" {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}
	fmt.Println("  Press Ctrl+C to stop.")

	select {
	case <-ctx.Done():
		err = rec.Stop()
	case <-rec.Done():
		err = rec.Wait()
	}
	if err != nil {
		return err
	}
	printRunSummary(rec)
	return nil
}

func printRunSummary(rec *recorder.Recorder) {
	m := rec.Metrics()
	fmt.Println()
	fmt.Printf("  Run:          %s\n", m.RunID)
	fmt.Printf("  Seed:         %d\n", rec.Seed())
	fmt.Printf("  Frames:       %d\n", m.Frames)
	fmt.Printf("  Transitions:  %d\n", m.Transitions)
	fmt.Printf("  Stalls:       %d\n", m.Stalls)
	fmt.Printf("  Samples:      %d\n", m.FrameSamples)
}

// ensureDir creates the directory holding path. In-memory databases need
// nothing.
func ensureDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}
