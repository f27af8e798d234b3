package source

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// eventChannelBuffer is the size of the watch event channel.
const eventChannelBuffer = 128

// WatchOperation indicates the type of file change.
type WatchOperation string

const (
	WatchOpCreate WatchOperation = "create"
	WatchOpModify WatchOperation = "modify"
	WatchOpDelete WatchOperation = "delete"
)

// WatchEvent reports a changed document file.
type WatchEvent struct {
	Path      string
	Operation WatchOperation
}

// WatchConfig configures document file watching.
type WatchConfig struct {
	// DebounceDelay is how long to wait for more changes before emitting.
	DebounceDelay time.Duration
	// Extensions lists file extensions to watch.
	Extensions []string
	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string
}

// DefaultWatchConfig returns defaults suited to prose documents.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		DebounceDelay: 500 * time.Millisecond,
		Extensions:    []string{".md", ".txt", ".html"},
		ExcludeDirs:   []string{".git", "node_modules", "vendor"},
	}
}

// Watcher watches a directory tree and emits debounced document change
// events, one per changed file per flush.
type Watcher struct {
	config     WatchConfig
	root       string
	watcher    *fsnotify.Watcher
	logger     *slog.Logger
	extensions map[string]bool
	excludes   map[string]bool

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	events chan WatchEvent
}

// NewWatcher creates a watcher over the given directory tree.
func NewWatcher(root string, config WatchConfig, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = 500 * time.Millisecond
	}

	extensions := make(map[string]bool)
	for _, ext := range config.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[strings.ToLower(ext)] = true
	}
	if len(extensions) == 0 {
		extensions[".md"] = true
		extensions[".txt"] = true
	}

	excludes := make(map[string]bool)
	for _, dir := range config.ExcludeDirs {
		excludes[dir] = true
	}

	return &Watcher{
		config:     config,
		root:       root,
		watcher:    fsw,
		logger:     logger,
		extensions: extensions,
		excludes:   excludes,
		pending:    make(map[string]fsnotify.Op),
		events:     make(chan WatchEvent, eventChannelBuffer),
	}, nil
}

// Events returns the channel of watch events. It is closed when the
// watcher stops.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Start begins watching. The event loop stops when ctx is cancelled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}
	go w.loop(ctx)

	w.logger.Info("Document watcher started",
		"root", w.root,
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop closes the underlying watcher; the events channel closes once the
// loop drains.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if w.excludes[base] || (strings.HasPrefix(base, ".") && path != root) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	ext := strings.ToLower(filepath.Ext(event.Name))
	if !w.extensions[ext] {
		// New directories need their own watch.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				base := filepath.Base(event.Name)
				if !w.excludes[base] && !strings.HasPrefix(base, ".") {
					if err := w.watcher.Add(event.Name); err != nil {
						w.logger.Warn("Failed to watch new directory",
							"path", event.Name, "error", err)
					}
				}
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[event.Name] |= event.Op
	w.pendingMu.Unlock()
}

// flush emits one event per pending file. Writes and creates collapse:
// a create followed by writes is a single create event.
func (w *Watcher) flush() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range pending {
		ev := WatchEvent{Path: path, Operation: WatchOpModify}
		switch {
		case op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename):
			ev.Operation = WatchOpDelete
		case op.Has(fsnotify.Create):
			ev.Operation = WatchOpCreate
		}

		select {
		case w.events <- ev:
		default:
			w.logger.Warn("Watch event dropped, channel full", "path", path)
		}
	}
}
