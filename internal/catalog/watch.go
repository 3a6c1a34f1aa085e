package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce groups bursts of file events into one reload.
const DefaultWatchDebounce = 300 * time.Millisecond

// Watch calls onChange when diseases.json or images/frontend_images.json
// under dir is written, created or renamed. Events are debounced. Watch
// blocks until ctx is cancelled; onChange runs on the watching goroutine.
func Watch(ctx context.Context, dir string, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	imagesDir := filepath.Join(dir, path.Dir(ImagesPath))
	if err := w.Add(imagesDir); err != nil {
		logger.Debug("images directory not watched", "dir", imagesDir, "error", err)
	}

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isDataFile(ev.Name) || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(debounce)
			}
		case <-fire:
			logger.Info("data files changed, reloading", "dir", dir)
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "dir", dir, "error", err)
		}
	}
}

func isDataFile(name string) bool {
	base := filepath.Base(name)
	return base == path.Base(DiseasesPath) || base == path.Base(ImagesPath)
}
