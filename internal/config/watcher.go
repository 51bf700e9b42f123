package config

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/nuwisp/gundam-go/internal/logger"
)

// ChangeHandler is notified when the watched config file's contents
// change on disk.
type ChangeHandler func(oldConfig, newConfig *Config) error

// Watcher polls a config file's modification time at a fixed interval
// and re-parses it on change. A long Hesse/Minos pass can take hours;
// this lets an operator adjust propagator.nbThreads or
// minimizer.maxIterations without restarting the process.
type Watcher struct {
	path     string
	interval time.Duration

	mu       sync.RWMutex
	lastMod  time.Time
	current  *Config
	handlers []ChangeHandler
}

// NewWatcher builds a Watcher for the config file at path, already
// parsed as initial.
func NewWatcher(path string, interval time.Duration, initial *Config) *Watcher {
	w := &Watcher{path: path, interval: interval, current: initial}
	if info, err := os.Stat(path); err == nil {
		w.lastMod = info.ModTime()
	}
	return w
}

// OnChange registers a callback fired after a successful reload.
func (w *Watcher) OnChange(h ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Run polls until ctx is canceled. Intended to run in its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkOnce()
		}
	}
}

func (w *Watcher) checkOnce() {
	info, err := os.Stat(w.path)
	if err != nil {
		logger.WithField("path", w.path).Warn("config watcher: stat failed", "error", err)
		return
	}
	w.mu.RLock()
	unchanged := !info.ModTime().After(w.lastMod)
	w.mu.RUnlock()
	if unchanged {
		return
	}

	next, err := Load(w.path)
	if err != nil {
		logger.WithField("path", w.path).Error("config watcher: reload failed", "error", err)
		return
	}
	if err := NewValidator(next).Validate(); err != nil {
		logger.WithField("path", w.path).Error("config watcher: reloaded config is invalid", "error", err)
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = next
	w.lastMod = info.ModTime()
	handlers := append([]ChangeHandler(nil), w.handlers...)
	w.mu.Unlock()

	for _, h := range handlers {
		if err := h(old, next); err != nil {
			logger.Error("config watcher: change handler failed", "error", err)
		}
	}
}
