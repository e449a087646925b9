package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mr-Dark-debug/veridian/internal/recorder"
)

var statusAddr string

// statusCmd shows the current daemon status by querying the metrics endpoint.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recorder daemon status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "Metrics address (default: recorder.metrics_addr)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr := statusAddr
	if addr == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		addr = cfg.Recorder.MetricsAddr
	}
	url := fmt.Sprintf("http://%s/api/metrics", addr)

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Println("⚠ Veridian daemon is not running.")
		fmt.Printf("  Start it with: veridian-daemon\n")
		fmt.Printf("  (tried: %s)\n", url)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var metrics recorder.Metrics
	if err := json.NewDecoder(resp.Body).Decode(&metrics); err != nil {
		return fmt.Errorf("decoding metrics: %w", err)
	}

	fmt.Println("✅ Veridian daemon is running.")
	fmt.Println()
	fmt.Printf("  Run:                 %s\n", metrics.RunID)
	fmt.Printf("  Frames:              %d\n", metrics.Frames)
	fmt.Printf("  Transitions:         %d\n", metrics.Transitions)
	fmt.Printf("  Stalls:              %d\n", metrics.Stalls)
	fmt.Printf("  Frame samples:       %d\n", metrics.FrameSamples)
	fmt.Printf("  Batches committed:   %d\n", metrics.BatchesCommitted)
	fmt.Printf("  Errors:              %d\n", metrics.ErrorCount)
	fmt.Printf("  Uptime:              %ds\n", metrics.Uptime)
	return nil
}
