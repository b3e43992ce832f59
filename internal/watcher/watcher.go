// Package watcher triggers debounced update notifications when a session log
// file changes on disk.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"slx/internal/logging"
)

// ChangeHandler is called, debounced, when a watched session file changes.
type ChangeHandler func(sessionFile string)

// Config contains watcher configuration
type Config struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	DebounceMs int  `json:"debounceMs" mapstructure:"debounceMs"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		DebounceMs: 250,
	}
}

// Watcher watches session log files and fires a handler on change. Session
// files are appended to by a single writer, so only write/create events on
// the exact file matter; sibling files in the same directory are ignored.
type Watcher struct {
	config  Config
	logger  *logging.Logger
	handler ChangeHandler

	fsw      *fsnotify.Watcher
	mu       sync.Mutex
	sessions map[string]*Debouncer // absolute session file path -> debouncer
	done     chan struct{}
	wg       sync.WaitGroup
}

// New creates a new session file watcher
func New(config Config, logger *logging.Logger, handler ChangeHandler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		config:   config,
		logger:   logger,
		handler:  handler,
		fsw:      fsw,
		sessions: make(map[string]*Debouncer),
		done:     make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Watch starts watching a session file. The containing directory is watched
// rather than the file itself so log rotation/replacement is still observed.
func (w *Watcher) Watch(sessionFile string) error {
	abs, err := filepath.Abs(sessionFile)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.sessions[abs]; exists {
		return nil // Already watching
	}

	if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch session directory: %w", err)
	}

	w.sessions[abs] = NewDebouncer(time.Duration(w.config.DebounceMs) * time.Millisecond)

	w.logger.Info("Watching session file", map[string]interface{}{
		"path": abs,
	})

	return nil
}

// Unwatch stops watching a session file.
func (w *Watcher) Unwatch(sessionFile string) {
	abs, err := filepath.Abs(sessionFile)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if deb, exists := w.sessions[abs]; exists {
		deb.Cancel()
		delete(w.sessions, abs)
	}
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()

	w.mu.Lock()
	for _, deb := range w.sessions {
		deb.Cancel()
	}
	w.sessions = make(map[string]*Debouncer)
	w.mu.Unlock()

	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.dispatch(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", map[string]interface{}{
				"error": err.Error(),
			})
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) dispatch(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	deb, watched := w.sessions[abs]
	w.mu.Unlock()

	if !watched {
		return
	}

	deb.Trigger(func() {
		w.logger.Debug("Session file changed", map[string]interface{}{
			"path": abs,
		})
		if w.handler != nil {
			w.handler(abs)
		}
	})
}
