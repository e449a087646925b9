package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Handler serves /health, /metrics (Prometheus text format),
// /api/metrics and /api/snapshot.
func (r *Recorder) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		status := "ok"
		select {
		case <-r.done:
			status = "finished"
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": status, "run_id": r.runID})
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, req *http.Request) {
		m := r.Metrics()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		counter := func(name, help string, v int64) {
			fmt.Fprintf(w, "# HELP %s %s\n", name, help)
			fmt.Fprintf(w, "# TYPE %s counter\n", name)
			fmt.Fprintf(w, "%s %d\n", name, v)
		}
		counter("veridian_frames_total", "Total frames stepped", m.Frames)
		counter("veridian_transitions_total", "Total waypoint transitions", m.Transitions)
		counter("veridian_stalls_total", "Transitions with no admissible direction", m.Stalls)
		counter("veridian_frame_samples_total", "Frame samples recorded", m.FrameSamples)
		counter("veridian_direct_writes_total", "Records written directly because a buffer was full", m.DirectWrites)
		counter("veridian_errors_total", "Total storage errors", m.ErrorCount)
		counter("veridian_batches_committed_total", "Total batches committed", m.BatchesCommitted)
		fmt.Fprintf(w, "# HELP veridian_uptime_seconds Uptime in seconds\n")
		fmt.Fprintf(w, "# TYPE veridian_uptime_seconds gauge\n")
		fmt.Fprintf(w, "veridian_uptime_seconds %d\n", m.Uptime)
	})

	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(r.Metrics())
	})

	mux.HandleFunc("/api/snapshot", func(w http.ResponseWriter, req *http.Request) {
		snap := r.Latest()
		if snap == nil {
			http.Error(w, "no frame yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	})

	return mux
}

// serveMetrics serves Handler on the pre-bound listener until ctx ends.
func (r *Recorder) serveMetrics(ctx context.Context) error {
	server := &http.Server{
		Handler:           r.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	r.log.Info("metrics server listening", zap.String("url", "http://"+r.listener.Addr().String()+"/metrics"))
	if err := server.Serve(r.listener); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
