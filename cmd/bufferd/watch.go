package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchDebounce coalesces the bursts of events editors produce when saving.
const watchDebounce = 50 * time.Millisecond

// watchFile calls changed whenever the file at path is written, created or replaced, until ctx is done.
// The parent directory is watched so that atomic saves (write and rename) are seen.
func watchFile(ctx context.Context, path string, log *zap.Logger, changed func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	log.Info("watching", zap.String("file", abs))

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op == fsnotify.Chmod {
				continue
			}
			log.Debug("file event", zap.Stringer("op", ev.Op))
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			changed()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		}
	}
}
