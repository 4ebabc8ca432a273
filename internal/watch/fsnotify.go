package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FSNotifyTrigger fires on OS notifications for one file. It watches the
// parent directory so the file may be replaced or created after start.
type FSNotifyTrigger struct {
	Path string
}

// Name implements Trigger.
func (f FSNotifyTrigger) Name() string { return "fsnotify" }

// Run implements Trigger.
func (f FSNotifyTrigger) Run(ctx context.Context, fire func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(f.Path)
	dir := filepath.Dir(target)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				fire()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}
