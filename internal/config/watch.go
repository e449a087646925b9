package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce batches the burst of events editors emit on save.
const watchDebounce = 100 * time.Millisecond

// Watch reloads path whenever it changes and hands the result to fn,
// until ctx is done. The parent directory is watched rather than the
// file, so atomic saves that replace the file are still seen. fn runs on
// the watcher goroutine; a reload that fails to parse or validate is
// passed as an error and the previous config stays in effect.
func Watch(ctx context.Context, path string, fn func(*Config, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	// Stopped until the first relevant event arms it.
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fn(nil, fmt.Errorf("watching %s: %w", abs, err))

		case <-debounce.C:
			cfg, err := Load(abs)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				fn(nil, err)
				continue
			}
			fn(cfg, nil)
		}
	}
}
