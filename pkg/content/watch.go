package content

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Result is one reload of a watched content file.
type Result struct {
	Path   string
	Bundle *Bundle
	Report *Report
	Err    error
}

// Watcher reloads and validates content files when they change on disk.
// Rapid writes to the same file are coalesced into one reload.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	target      string // file or directory being watched
	dir         string
	onChange    func(Result)
	logger      *slog.Logger
	pending     map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher watches path, which may be a single content file or a directory
// of them. onChange runs on the watcher goroutine.
func NewWatcher(path string, onChange func(Result), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat content path: %w", err)
	}
	dir := filepath.Clean(path)
	if !info.IsDir() {
		// Editors often replace files, so watch the parent directory
		dir = filepath.Dir(path)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		watcher:     fw,
		target:      filepath.Clean(path),
		dir:         dir,
		onChange:    onChange,
		logger:      logger,
		pending:     make(map[string]time.Time),
		debounceDur: 200 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.running = true
	w.logger.Info("Watching content", "path", w.target)

	go w.run(ctx)
	return nil
}

// Stop ends the watch and waits for the goroutine to exit. It is safe to call
// more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("Error closing content watcher", "error", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounceDur / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Content watcher error", "error", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	name := filepath.Clean(event.Name)
	if w.target != w.dir && name != w.target {
		return
	}
	if !IsContentFile(name) {
		return
	}
	w.pending[name] = time.Now()
}

func (w *Watcher) flush() {
	now := time.Now()
	for path, at := range w.pending {
		if now.Sub(at) < w.debounceDur {
			continue
		}
		delete(w.pending, path)
		w.reload(path)
	}
}

func (w *Watcher) reload(path string) {
	res := Result{Path: path}
	res.Bundle, res.Err = LoadFile(path)
	if res.Err == nil {
		res.Report = Validate(res.Bundle)
	}
	w.logger.Debug("Content reloaded", "path", path, "error", res.Err)
	w.onChange(res)
}
