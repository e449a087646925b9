// Veridian CLI: record, inspect and render grid trace runs.
//
// Usage:
//
//	veridian <command> [flags]
//
// Commands:
//
//	record    Record a run headless, in real time or simulated
//	analyze   Run walk analysis on a recorded run
//	query     List recorded runs or a run's transitions
//	diff      Compare the parameters of recorded runs
//	snapshot  Render a simulated frame to PNG
//	status    Show recorder daemon status
//	version   Print version information
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mr-Dark-debug/veridian/internal/config"
	"github.com/Mr-Dark-debug/veridian/internal/database"
	"github.com/Mr-Dark-debug/veridian/internal/logger"
)

var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	dbPath     string
	logLevel   string
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "veridian",
	Short: "Veridian grid trace recorder and inspector",
	Long: `Veridian animates a wandering trace over a square grid behind a
scrolling page. This tool records runs to SQLite, analyzes them and
renders snapshots.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Veridian v%s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./veridian.yaml or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides recorder.db_path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, applies the global flags and sets up
// logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Recorder.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, nil
}

// openStore opens the run database, creating its directory.
func openStore(cfg *config.Config) (*database.DBService, error) {
	if err := ensureDir(cfg.Recorder.DBPath); err != nil {
		return nil, err
	}
	store, err := database.NewDBService(cfg.Recorder.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return store, nil
}
