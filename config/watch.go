package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the config file on change and hands the result to a callback.
// It watches the parent directory so editors that replace the file are seen too.
type Watcher struct {
	Path     string
	Cooldown time.Duration // 两次重载的最小间隔
	Logger   *zap.Logger
}

// Start blocks until ctx is done; invalid files are logged and skipped.
func (w Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	target := filepath.Clean(w.Path)
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	var lastReload time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if w.Cooldown > 0 && time.Since(lastReload) < w.Cooldown {
				continue
			}
			cfg, err := LoadWithEnvOverrides(target)
			if err != nil {
				logger.Warn("config reload skipped", zap.String("path", target), zap.Error(err))
				continue
			}
			lastReload = time.Now()
			logger.Info("config reloaded", zap.String("path", target))
			if onUpdate != nil {
				onUpdate(cfg)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", zap.Error(err))
		}
	}
}
