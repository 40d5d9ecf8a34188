package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/compliance-engine/internal/logger"
)

// DefaultReloadDebounce is how long Watch waits for more edits before reloading.
const DefaultReloadDebounce = 250 * time.Millisecond

// Watch reloads templates whenever a .toml file in the template directory
// changes. The watcher is registered before Watch returns; it runs until ctx
// is cancelled.
func (s *TemplateStore) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create template directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	go s.watchLoop(ctx, w, debounce)
	return nil
}

func (s *TemplateStore) watchLoop(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration) {
	defer w.Close()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".toml" || event.Op == fsnotify.Chmod {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("template watcher: %v", err)

		case <-timer.C:
			s.Reload()
			logger.Info("prompt templates in %s changed, reloaded", s.dir)
		}
	}
}
