// Veridian TUI: the grid trace animated in the terminal, over a virtual
// page scrolled with the keyboard.
//
// Usage:
//
//	veridian-tui [flags]
//
// Flags:
//
//	--config  Config file (default: ./veridian.yaml or the user config dir)
//	--db      Path to SQLite database for the run browser (default: recorder.db_path)
//	--seed    Direction seed (default: ui.seed, 0 picks one)
//	--lang    Catalog language (default: ui.language, then $LANG)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Mr-Dark-debug/veridian/internal/config"
	"github.com/Mr-Dark-debug/veridian/internal/database"
	"github.com/Mr-Dark-debug/veridian/internal/logger"
	"github.com/Mr-Dark-debug/veridian/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Config file")
	dbPath := flag.String("db", "", "Path to SQLite database file")
	seed := flag.Uint64("seed", 0, "Direction seed")
	lang := flag.String("lang", "", "Catalog language: en, fr, es, de")
	flag.Parse()

	if err := run(*configPath, *dbPath, *seed, *lang); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, dbPath string, seed uint64, lang string) error {
	path := config.Resolve(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Recorder.DBPath = dbPath
	}
	if seed != 0 {
		cfg.UI.Seed = seed
	}
	if lang != "" {
		cfg.UI.Language = lang
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Never log to the terminal the UI is drawing on.
	fileCfg := cfg.Logging.File
	if fileCfg.Path == "" {
		fileCfg.Path = filepath.Join(config.ConfigDir(), "veridian-tui.log")
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, false); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	// The run browser is optional; the animation works without a database.
	var store database.Store
	if _, err := os.Stat(cfg.Recorder.DBPath); err == nil {
		db, err := database.NewDBService(cfg.Recorder.DBPath)
		if err != nil {
			logger.Warn("run database unavailable", zap.String("path", cfg.Recorder.DBPath), zap.Error(err))
		} else {
			defer db.Close()
			store = db
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The language picked in the UI goes to the file in use, or to a new
	// one in the user config dir.
	savePath := path
	if savePath == "" {
		savePath = filepath.Join(config.ConfigDir(), config.FileName)
	}

	model, err := tui.NewModel(tui.Options{
		Config:     cfg,
		ConfigPath: path,
		SavePath:   savePath,
		Store:      store,
		Logger:     logger.Named("tui"),
		Locale:     os.Getenv("LANG"),
		Context:    ctx,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
