package parameter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/domain/incident"
	"troubledesk/internal/errs"
)

const watchDebounce = 250 * time.Millisecond

// WatchSeed imports path once and again after every change until ctx ends.
// The directory is watched rather than the file so editors that replace the
// file on save are still seen. onApply, when set, gets every import outcome;
// a failed import leaves the stored parameters untouched and keeps watching.
func (s *Service) WatchSeed(ctx context.Context, actor incident.Actor, path string, onApply func(ImportResult, error)) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errs.Wrapf(err, "resolve %s", path)
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.parameter"), slog.String("seed", absPath))

	apply := func() {
		result, err := s.importFile(ctx, actor, absPath)
		if err != nil {
			logging.Warn(logCtx, "parameter seed import failed", slog.Any("err", errs.Loggable(err)))
		}
		if onApply != nil {
			onApply(result, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(err, "create file watcher")
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return errs.Wrapf(err, "watch %s", filepath.Dir(absPath))
	}

	apply()
	logging.Info(logCtx, "watching parameter seed")

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
			} else {
				debounce.Reset(watchDebounce)
			}
			fire = debounce.C
		case <-fire:
			fire = nil
			apply()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn(logCtx, "file watcher error", slog.Any("err", errs.Loggable(err)))
		}
	}
}

func (s *Service) importFile(ctx context.Context, actor incident.Actor, path string) (ImportResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return ImportResult{}, errs.Wrapf(err, "open %s", path)
	}
	defer file.Close()
	return s.ImportFormat(ctx, actor, file, SeedFormatFor(path))
}
