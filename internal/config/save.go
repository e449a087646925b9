package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Save writes the config to the user's config directory.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(ConfigDir(), FileName))
}

// SaveTo writes the config to a specific path.
func (c *Config) SaveTo(path string) error {
	// Create parent directory if needed
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SaveLanguage stores lang as the UI language in the file at path, keeping
// everything else the file holds. A missing file is created from defaults.
func SaveLanguage(path, lang string) error {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if cfg, err = Load(path); err != nil {
			return err
		}
	}
	cfg.UI.Language = lang
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("saving language to %s: %w", path, err)
	}
	return nil
}
