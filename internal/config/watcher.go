package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands the
// result to a callback. Invalid files are logged and skipped.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(*Config)
	logger   *slog.Logger
}

// NewWatcher creates a watcher for path. onChange runs on the watcher
// goroutine.
func NewWatcher(path string, onChange func(*Config), logger *slog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   logger.With(slog.String("component", "config-watcher")),
	}
}

// Run blocks until ctx is cancelled. The parent directory is watched rather
// than the file so that rename-on-save editors keep working.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close() //nolint:errcheck

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	name := filepath.Base(w.path)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", slog.String("error", err.Error()))
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("ignoring invalid config change",
			slog.String("path", w.path),
			slog.String("error", err.Error()))
		return
	}
	w.logger.Info("config file reloaded", slog.String("path", w.path))
	w.onChange(cfg)
}
