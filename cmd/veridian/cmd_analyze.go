package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mr-Dark-debug/veridian/internal/analysis"
	"github.com/Mr-Dark-debug/veridian/internal/database"
)

var analyzeFormat string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <run-id>",
	Short: "Run walk analysis on a recorded run",
	Long: `Analyze a recorded run: direction mix, reversal and revisit rates,
step interval outliers and how the walk followed the scroll.

Pass "latest" to analyze the most recent run.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "markdown", "Output format: markdown, json")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runID, err := resolveRunID(store, args[0])
	if err != nil {
		return err
	}

	analyzer := analysis.NewAnalyzer(store)
	report, err := analyzer.FullAnalysis(runID)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	switch analyzeFormat {
	case "json":
		b, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
	case "markdown":
		fmt.Print(analyzer.FormatReport(report))
	default:
		return fmt.Errorf("unknown format: %s", analyzeFormat)
	}
	return nil
}

// resolveRunID maps "latest" to the newest run.
func resolveRunID(store database.Store, id string) (string, error) {
	if id != "latest" {
		return id, nil
	}
	runs, err := store.QueryRuns(database.RunFilter{Limit: 1})
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", database.ErrRunNotFound
	}
	return runs[0].RunID, nil
}
