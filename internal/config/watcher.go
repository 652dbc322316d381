package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/avaxform/internal/observability"
)

// RuleSetCallback is called after the rule set was reloaded.
type RuleSetCallback func(*RuleSet)

// ErrorCallback is called when a reload fails.
type ErrorCallback func(error)

// RuleWatcher keeps the current rule set in memory and reloads it when the
// file changes. A reload that fails to parse or validate keeps the previous
// rule set.
type RuleWatcher struct {
	path          string
	watcher       *fsnotify.Watcher
	callback      RuleSetCallback
	errorCallback ErrorCallback
	logger        observability.Logger
	debounceDelay time.Duration

	mu      sync.RWMutex
	current *RuleSet
	running bool

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// WatcherOption is a functional option for configuring the watcher.
type WatcherOption func(*RuleWatcher)

// WithDebounceDelay sets the debounce delay for file changes.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *RuleWatcher) {
		if delay > 0 {
			w.debounceDelay = delay
		}
	}
}

// WithLogger sets the logger for the watcher.
func WithLogger(logger observability.Logger) WatcherOption {
	return func(w *RuleWatcher) {
		w.logger = logger
	}
}

// WithErrorCallback sets the error callback for the watcher.
func WithErrorCallback(callback ErrorCallback) WatcherOption {
	return func(w *RuleWatcher) {
		w.errorCallback = callback
	}
}

// WithRuleSetCallback sets the callback invoked after each reload.
func WithRuleSetCallback(callback RuleSetCallback) WatcherOption {
	return func(w *RuleWatcher) {
		w.callback = callback
	}
}

// NewRuleWatcher loads the rule set at path and prepares a watcher for it.
// Watching only starts with Start.
func NewRuleWatcher(path string, opts ...WatcherOption) (*RuleWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &RuleWatcher{
		path:          absPath,
		debounceDelay: 100 * time.Millisecond,
		logger:        observability.NopLogger(),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	set, err := w.load()
	if err != nil {
		return nil, err
	}
	w.current = set

	return w, nil
}

// Rules returns the current rule set.
func (w *RuleWatcher) Rules() *RuleSet {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching the rule set file.
func (w *RuleWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	// Editors replace files by rename, so the directory is watched.
	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		_ = fsWatcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = fsWatcher
	w.running = true
	w.mu.Unlock()

	w.logger.Info("started watching rule set",
		observability.String("path", w.path),
	)

	go w.watch(ctx)
	return nil
}

// Stop stops watching the rule set file.
func (w *RuleWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.stoppedCh

	return w.watcher.Close()
}

// Reload re-reads the rule set immediately.
func (w *RuleWatcher) Reload() error {
	set, err := w.load()
	if err != nil {
		return err
	}
	w.publish(set)
	return nil
}

func (w *RuleWatcher) watch(ctx context.Context) {
	defer close(w.stoppedCh)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rule watcher stopped due to context cancellation")
			return

		case <-w.stopCh:
			w.logger.Info("rule watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("rule set changed",
				observability.String("path", event.Name),
				observability.String("op", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.debounceDelay)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.fail("rule watcher error", err)
		}
	}
}

func (w *RuleWatcher) reload() {
	set, err := w.load()
	if err != nil {
		w.fail("failed to reload rule set", err)
		return
	}
	w.publish(set)
	w.logger.Info("rule set reloaded",
		observability.Int("rules", len(set.Rules)),
	)
}

func (w *RuleWatcher) load() (*RuleSet, error) {
	set, err := LoadRuleSet(w.path)
	if err != nil {
		return nil, err
	}
	if err := ValidateRuleSet(set); err != nil {
		return nil, err
	}
	return set, nil
}

func (w *RuleWatcher) publish(set *RuleSet) {
	w.mu.Lock()
	w.current = set
	w.mu.Unlock()

	if w.callback != nil {
		w.callback(set)
	}
}

func (w *RuleWatcher) fail(msg string, err error) {
	w.logger.Error(msg, observability.Error(err))
	if w.errorCallback != nil {
		w.errorCallback(err)
	}
}
