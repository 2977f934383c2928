package inventory

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/specialistvlad/familiar/internal/ctxlog"
)

// Resetter is anything holding a cache that an external signal can invalidate.
type Resetter interface {
	Reset()
}

// WatchReset calls r.Reset whenever the file at path is created or written.
// The file's content is ignored; touching it is the signal. It blocks until
// ctx is done and returns nil in that case.
func WatchReset(ctx context.Context, path string, r Resetter) error {
	logger := ctxlog.FromContext(ctx).With("component", "reset_watcher", "path", path)

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve reset signal path: %w", err)
	}
	abs = filepath.Clean(abs)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so the signal file may be created after startup.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Debug("Watching for reset signals.")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || filepath.Clean(event.Name) != abs {
				continue
			}
			logger.Info("Reset signal received, inventory will be rediscovered.", "op", event.Op.String())
			r.Reset()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Reset watcher error.", "error", err)
		}
	}
}
