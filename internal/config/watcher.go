package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay is how long the watcher waits for writes to settle.
const DefaultReloadDelay = 300 * time.Millisecond

// ChangeHandler receives each successfully reloaded config.
type ChangeHandler func(cfg *Config)

// Watcher reloads a config file when it changes. The containing directory is
// watched rather than the file so that editors which save by renaming a
// temporary file over the original are noticed.
type Watcher struct {
	path      string
	overrides Overrides
	onChange  ChangeHandler
	logger    *slog.Logger
	delay     time.Duration
	fw        *fsnotify.Watcher
}

// NewWatcher prepares a watcher for path. Flag overrides in o are re-applied
// on every reload so they keep taking precedence over the file.
func NewWatcher(path string, o Overrides, onChange ChangeHandler, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		path:      abs,
		overrides: o,
		onChange:  onChange,
		logger:    logger,
		delay:     DefaultReloadDelay,
		fw:        fw,
	}, nil
}

// Run delivers reloads until ctx is done. It always closes the underlying
// watcher before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()
	w.logger.Debug("config watcher started", "path", w.path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.delay, func() {
				if ctx.Err() == nil {
					w.reload()
				}
			})
			mu.Unlock()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFrom(w.path)
	if err != nil {
		w.logger.Error("config reload failed", "path", w.path, "error", err)
		return
	}
	if w.overrides.Root != "" {
		cfg.Corpus.Root = w.overrides.Root
	}
	if w.overrides.LogLevel != "" {
		cfg.Log.Level = w.overrides.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Error("config reload rejected", "path", w.path, "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
