package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the standard locations.
const FileName = "config.yaml"

// Load loads configuration with priority: defaults < file. An explicit
// path must exist; without one the standard locations are searched and a
// missing file leaves the defaults. Command-line overrides are applied by
// the caller on the returned value.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Resolve returns the file Load would read, or "" when there is none.
func Resolve(path string) string {
	if path != "" {
		return path
	}
	return findConfigFile()
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./veridian.yaml",
		filepath.Join(ConfigDir(), FileName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Veridian")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Veridian")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "veridian")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "veridian")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
