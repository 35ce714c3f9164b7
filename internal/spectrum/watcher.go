// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package spectrum

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// ===== FILE WATCHING =====

// Watcher watches spectrum source files and collects paths whose
// contents have settled after a change. Consumers poll Drain from their
// own event loop, so spectra are only ever reloaded single-threaded.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	limiter  *rate.Limiter

	mu      sync.Mutex
	notify  func()
	enabled bool
	pending map[string]time.Time
	settled map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher. Changes are reported no earlier than
// debounce after the last write to a file, and at most maxPerSec
// reloads per second across all files. notify, if non-nil, is called
// once whenever new settled paths become available.
func NewWatcher(debounce time.Duration, maxPerSec float64, notify func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if maxPerSec <= 0 {
		maxPerSec = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		fsw:      fsw,
		debounce: debounce,
		limiter:  rate.NewLimiter(rate.Limit(maxPerSec), 1),
		notify:   notify,
		enabled:  true,
		pending:  make(map[string]time.Time),
		settled:  make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Add starts watching a file.
func (w *Watcher) Add(path string) error {
	return w.fsw.Add(path)
}

// Remove stops watching a file. Unknown paths are ignored.
func (w *Watcher) Remove(path string) {
	_ = w.fsw.Remove(path)
	w.mu.Lock()
	delete(w.pending, path)
	delete(w.settled, path)
	w.mu.Unlock()
}

// SetNotify replaces the settled-paths callback.
func (w *Watcher) SetNotify(fn func()) {
	w.mu.Lock()
	w.notify = fn
	w.mu.Unlock()
}

// SetEnabled pauses or resumes change reporting. Disabling drops
// everything collected so far; watched paths stay registered and report
// again once re-enabled.
func (w *Watcher) SetEnabled(on bool) {
	w.mu.Lock()
	w.enabled = on
	if !on {
		w.pending = make(map[string]time.Time)
		w.settled = make(map[string]bool)
	}
	w.mu.Unlock()
}

// Drain returns the paths that have settled since the last call and
// clears them.
func (w *Watcher) Drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.settled) == 0 {
		return nil
	}
	paths := make([]string, 0, len(w.settled))
	for path := range w.settled {
		paths = append(paths, path)
	}
	w.settled = make(map[string]bool)
	return paths
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending[ev.Name] = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("spectrum watcher: %v", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

// flush promotes pending paths whose last event is older than the
// debounce window, subject to the rate limit.
func (w *Watcher) flush() {
	now := time.Now()
	var promoted bool
	w.mu.Lock()
	if !w.enabled {
		w.mu.Unlock()
		return
	}
	for path, last := range w.pending {
		if now.Sub(last) < w.debounce {
			continue
		}
		if !w.limiter.Allow() {
			break
		}
		delete(w.pending, path)
		w.settled[path] = true
		promoted = true
	}
	notify := w.notify
	w.mu.Unlock()
	if promoted && notify != nil {
		notify()
	}
}
