package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Mr-Dark-debug/veridian/internal/driver"
	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, gridtrace.DefaultParams(), cfg.Animation)
	assert.Equal(t, 60.0, cfg.Recorder.FPS)
	assert.Equal(t, "/ws", cfg.Stream.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.File.Path)
	assert.Empty(t, cfg.UI.Language)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
animation:
  cell_size: 40
  step_interval: 300ms
recorder:
  fps: 30
  label: nightly
  script:
    - at: 0s
      scroll_y: 0
    - at: 2s
      scroll_y: 900
stream:
  addr: ""
logging:
  level: debug
ui:
  language: fr
  page_height: 2400
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40.0, cfg.Animation.CellSize)
	assert.Equal(t, 300*time.Millisecond, cfg.Animation.StepInterval)
	// Unset fields keep their defaults.
	assert.Equal(t, gridtrace.DefaultParams().MaxSegments, cfg.Animation.MaxSegments)
	assert.Equal(t, 30.0, cfg.Recorder.FPS)
	assert.Equal(t, "nightly", cfg.Recorder.Label)
	assert.Equal(t, []driver.Keyframe{{At: 0, ScrollY: 0}, {At: 2 * time.Second, ScrollY: 900}}, cfg.Recorder.Script)
	assert.Empty(t, cfg.Stream.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "fr", cfg.UI.Language)
	assert.Equal(t, 2400.0, cfg.UI.PageHeight)
	assert.Equal(t, 120.0, cfg.UI.ScrollStep)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("animation: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Animation.Color = "#ff8800"
	cfg.UI.Seed = 42
	cfg.Recorder.Duration = 90 * time.Second
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveLanguage(t *testing.T) {
	t.Run("keeps the rest of the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		cfg := Default()
		cfg.UI.Seed = 7
		cfg.Animation.Color = "#ff8800"
		require.NoError(t, cfg.SaveTo(path))

		require.NoError(t, SaveLanguage(path, "fr"))

		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "fr", loaded.UI.Language)
		assert.Equal(t, uint64(7), loaded.UI.Seed)
		assert.Equal(t, "#ff8800", loaded.Animation.Color)
	})

	t.Run("creates a missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.yaml")
		require.NoError(t, SaveLanguage(path, "de"))

		loaded, err := Load(path)
		require.NoError(t, err)
		want := Default()
		want.UI.Language = "de"
		assert.Equal(t, want, loaded)
	})

	t.Run("refuses to overwrite a broken file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("ui: [oops"), 0o644))

		require.Error(t, SaveLanguage(path, "es"))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "ui: [oops", string(data))
	})
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Animation.CellSize = 0
	cfg.Logging.Level = "loud"
	cfg.UI.Language = "xx"
	cfg.UI.FPS = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, gridtrace.ErrInvalidParams)
	for _, want := range []string{"cell_size", "loud", "xx", "fps"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestConfigDirXDG(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("XDG applies to unix-like systems")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "veridian"), ConfigDir())
}

func TestWatchReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Default().SaveTo(path))

	ctx, cancel := context.WithCancel(context.Background())
	reloads := make(chan *Config, 4)
	failures := make(chan error, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg *Config, err error) {
			if err != nil {
				failures <- err
				return
			}
			reloads <- cfg
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	updated := Default()
	updated.Animation.CellSize = 80
	require.NoError(t, updated.SaveTo(path))

	select {
	case cfg := <-reloads:
		assert.Equal(t, 80.0, cfg.Animation.CellSize)
	case err := <-failures:
		t.Fatalf("unexpected reload error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}

	require.NoError(t, os.WriteFile(path, []byte("animation:\n  cell_size: -1\n"), 0644))
	select {
	case err := <-failures:
		assert.ErrorIs(t, err, gridtrace.ErrInvalidParams)
	case <-time.After(3 * time.Second):
		t.Fatal("invalid config was not reported")
	}

	cancel()
	require.NoError(t, <-done)
}
