package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mr-Dark-debug/veridian/internal/database"
)

var (
	queryLabel  string
	queryStatus string
	queryRun    string
	queryFrames bool
	queryLimit  int
)

// queryCmd lists runs, or a run's transitions and frame samples.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List recorded runs or a run's transitions",
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryLabel, "label", "", "Filter runs by label")
	queryCmd.Flags().StringVar(&queryStatus, "status", "", "Filter runs by status: running, completed, failed")
	queryCmd.Flags().StringVar(&queryRun, "run", "", "Show transitions for a run")
	queryCmd.Flags().BoolVar(&queryFrames, "frames", false, "With --run, show frame samples instead")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 20, "Maximum runs listed")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if queryRun != "" {
		runID, err := resolveRunID(store, queryRun)
		if err != nil {
			return err
		}
		if queryFrames {
			frames, err := store.QueryFrames(runID)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			return printJSON(frames)
		}
		trs, err := store.QueryTransitions(runID)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		return printJSON(trs)
	}

	filter := database.RunFilter{Limit: queryLimit}
	if queryLabel != "" {
		filter.Label = &queryLabel
	}
	if queryStatus != "" {
		filter.Status = &queryStatus
	}
	runs, err := store.QueryRuns(filter)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return printJSON(runs)
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
