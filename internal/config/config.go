// Package config handles Veridian configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
	"github.com/Mr-Dark-debug/veridian/internal/i18n"
	"github.com/Mr-Dark-debug/veridian/internal/logger"
	"github.com/Mr-Dark-debug/veridian/internal/recorder"
	"github.com/Mr-Dark-debug/veridian/internal/stream"
)

// Config holds all settings.
type Config struct {
	Animation gridtrace.Params `yaml:"animation"`
	Recorder  recorder.Config  `yaml:"recorder"`
	Stream    stream.Config    `yaml:"stream"`
	Logging   LoggingConfig    `yaml:"logging"`
	UI        UIConfig         `yaml:"ui"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string            `yaml:"level"`
	File    logger.FileConfig `yaml:"file"`
	Console bool              `yaml:"console"`
}

// UIConfig holds terminal renderer settings.
type UIConfig struct {
	// Language is a catalog code. Empty detects it from the environment.
	Language string `yaml:"language"`

	FPS float64 `yaml:"fps"`

	// PageHeight is the height of the virtual document in animation units.
	PageHeight float64 `yaml:"page_height"`

	// ScrollStep is the distance moved by j and k.
	ScrollStep float64 `yaml:"scroll_step"`

	// Seed fixes direction picks. 0 picks a random seed.
	Seed uint64 `yaml:"seed"`

	ShowStats bool `yaml:"show_stats"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Animation: gridtrace.DefaultParams(),
		Recorder:  recorder.DefaultConfig(),
		Stream:    stream.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "info",
			File:  logger.DefaultFileConfig(""),
		},
		UI: UIConfig{
			FPS:        30,
			PageHeight: 4800,
			ScrollStep: 120,
			ShowStats:  true,
		},
	}
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Animation.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("animation: %w", err))
	}
	if err := c.Recorder.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Stream.Addr != "" {
		if err := c.Stream.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown level %q", c.Logging.Level))
	}
	if c.UI.Language != "" && !i18n.IsSupported(c.UI.Language) {
		errs = append(errs, fmt.Errorf("ui: unsupported language %q", c.UI.Language))
	}
	if c.UI.FPS <= 0 || c.UI.FPS > 240 {
		errs = append(errs, fmt.Errorf("ui: fps must be in (0, 240], got %v", c.UI.FPS))
	}
	if c.UI.PageHeight <= 0 || c.UI.ScrollStep <= 0 {
		errs = append(errs, fmt.Errorf("ui: page_height and scroll_step must be positive"))
	}
	return errors.Join(errs...)
}
