package main

import (
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-Dark-debug/veridian/internal/config"
	"github.com/Mr-Dark-debug/veridian/internal/database"
	"github.com/Mr-Dark-debug/veridian/pkg/jsonutil"
)

// setupWorkspace writes a config pointing at a temp database and selects it.
func setupWorkspace(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Recorder.DBPath = filepath.Join(dir, "data", "veridian.db")
	cfg.Recorder.MetricsAddr = ""
	cfg.Recorder.Seed = 5
	cfg.Logging.Console = false
	path := filepath.Join(dir, "veridian.yaml")
	require.NoError(t, cfg.SaveTo(path))

	configPath = path
	t.Cleanup(func() {
		configPath, dbPath, logLevel = "", "", ""
		recordSimulate, recordLabel = 0, ""
	})
	return cfg
}

func TestRecordSimulate(t *testing.T) {
	cfg := setupWorkspace(t)
	recordSimulate = 240
	recordLabel = "cli"

	require.NoError(t, runRecord(&cobra.Command{}, nil))

	store, err := database.NewDBService(cfg.Recorder.DBPath)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.QueryRuns(database.RunFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "cli", runs[0].Label)
	assert.Equal(t, database.StatusCompleted, runs[0].Status)
	assert.Equal(t, int64(240), runs[0].Frames)
	assert.Equal(t, int64(5), runs[0].Seed)

	id, err := resolveRunID(store, "latest")
	require.NoError(t, err)
	assert.Equal(t, runs[0].RunID, id)

	params, err := runParams(store, id)
	require.NoError(t, err)
	current, err := json.Marshal(cfg.Animation)
	require.NoError(t, err)
	changes, err := jsonutil.Diff(params, string(current))
	require.NoError(t, err)
	assert.Empty(t, changes, "run was recorded with the configured parameters")
}

func TestResolveLatestWithoutRuns(t *testing.T) {
	store, err := database.NewDBService(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = resolveRunID(store, "latest")
	assert.ErrorIs(t, err, database.ErrRunNotFound)

	id, err := resolveRunID(store, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}

func TestSnapshotWritesPNG(t *testing.T) {
	setupWorkspace(t)
	out := filepath.Join(t.TempDir(), "frame.png")
	snapshotOut, snapshotAt = out, 3*time.Second
	snapshotWidth, snapshotHeight = 320, 200
	t.Cleanup(func() {
		snapshotOut, snapshotAt = "veridian.png", 20*time.Second
		snapshotWidth, snapshotHeight = 1280, 800
	})

	require.NoError(t, runSnapshot(&cobra.Command{}, nil))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Width)
	assert.Equal(t, 200, img.Height)
}

func TestSnapshotRejectsNegativeTime(t *testing.T) {
	setupWorkspace(t)
	out := filepath.Join(t.TempDir(), "frame.png")
	snapshotOut, snapshotAt = out, -2*time.Second
	t.Cleanup(func() {
		snapshotOut, snapshotAt = "veridian.png", 20*time.Second
	})

	err := runSnapshot(&cobra.Command{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--at")
	assert.NoFileExists(t, out)
}

func TestEnsureDir(t *testing.T) {
	assert.NoError(t, ensureDir(":memory:"))

	path := filepath.Join(t.TempDir(), "a", "b", "x.db")
	require.NoError(t, ensureDir(path))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
