package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/mass-rtp-search/internal/logger"
)

const debounceInterval = 200 * time.Millisecond

// Watch runs once, then again every time inputPath is written or replaced,
// until ctx ends. Runs never overlap; changes made during a run trigger one
// more run afterwards. onRun receives the result of each run.
func (m *Manager) Watch(ctx context.Context, inputPath string, onRun func(*RunResult, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Error("failed to close watcher", "error", err)
		}
	}()

	// Watch the directory so editors that replace the file are caught too
	dir := filepath.Dir(inputPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	trigger := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	onRun(m.Run(ctx, inputPath))
	logger.Info("watching for changes", "path", inputPath)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(inputPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceInterval, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
			m.broadcast(ErrorEvent{Service: "watch", Error: err})

		case <-trigger:
			logger.Info("input changed, running again", "path", inputPath)
			onRun(m.Run(ctx, inputPath))

		case <-ctx.Done():
			return nil
		}
	}
}
