package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce coalesces the bursts of events a single save produces.
var debounce = 100 * time.Millisecond

// watch calls regenerate after every change of the file at path until ctx
// is done. Failed regenerations are logged and do not stop the watch.
func watch(ctx context.Context, path string, log *slog.Logger, regenerate func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tablegen: watch: %w", err)
	}
	defer w.Close()
	// Editors replace files on save; the directory survives that.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("tablegen: watch %s: %w", filepath.Dir(path), err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			log.Debug("description changed", "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "err", err)
		case <-timer.C:
			if err := regenerate(); err != nil {
				log.Error("generate failed", "config", path, "err", err)
			}
		}
	}
}
