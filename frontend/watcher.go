package frontend

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

// WatcherConfig configures the source file watcher.
type WatcherConfig struct {
	// Root is the source directory to watch.
	Root string

	// Registry supplies the parsers; nil means DefaultRegistry.
	Registry *Registry

	// DebounceDelay is how long to wait for more changes before processing.
	DebounceDelay time.Duration

	Logger *slog.Logger
}

// WatchEvent is one debounced file change with its lowered result.
type WatchEvent struct {
	// Path is relative to the watched root.
	Path string

	Operation WatchOperation

	// Result is nil for delete operations.
	Result *ParseResult

	// Error if lowering failed.
	Error error
}

// WatchOperation indicates the type of file operation.
type WatchOperation string

const (
	OpCreate WatchOperation = "create"
	OpModify WatchOperation = "modify"
	OpDelete WatchOperation = "delete"
)

// Watcher watches a source tree and emits lowered element trees for files
// whose content actually changed. Changes are debounced so editor save
// bursts produce one event per file.
type Watcher struct {
	config   WatcherConfig
	registry *Registry
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.RWMutex
	hashes map[string]string // path → content hash

	// events is closed by processEvents, the only sender, so Stop can
	// never race a send against the close.
	events   chan WatchEvent
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher over the configured root.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := config.Registry
	if registry == nil {
		registry = DefaultRegistry
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 100 * time.Millisecond
	}

	return &Watcher{
		config:   config,
		registry: registry,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		events:   make(chan WatchEvent, 100),
		done:     make(chan struct{}),
	}, nil
}

// Events returns the channel of watch events.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Start begins watching the root for changes.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.config.Root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("source watcher started",
		"root", w.config.Root,
		"debounce", w.config.DebounceDelay,
		"extensions", w.registry.Extensions())
	return nil
}

// Stop stops the watcher. Safe to call more than once; the events
// channel closes once the processing goroutine drains.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.done) })
	return w.watcher.Close()
}

// SetHash records the hash for a file, used during initial indexing.
func (w *Watcher) SetHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

// Hash returns the recorded hash for a file.
func (w *Watcher) Hash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
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
		if skipDir(base) && path != root {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func skipDir(base string) bool {
	if strings.HasPrefix(base, ".") {
		return true
	}
	switch base {
	case "venv", "env", "__pycache__", "node_modules", "vendor", "dist", "build", "site-packages":
		return true
	}
	return false
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	ext := filepath.Ext(path)
	if _, known := w.registry.ParserName(ext); !known {
		// Directory creation still needs a new watch.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()
}

func (w *Watcher) handleNewDirectory(path string) {
	if skipDir(filepath.Base(path)) {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("failed to watch new directory", "path", path, "error", err)
	}
}

// flushPending lowers accumulated changes and emits events for files whose
// content hash moved.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}

		relPath, _ := filepath.Rel(w.config.Root, path)
		event := WatchEvent{Path: relPath}

		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			event.Operation = OpDelete

			w.hashMu.Lock()
			delete(w.hashes, relPath)
			w.hashMu.Unlock()

			w.sendEvent(event)
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			event.Operation = OpDelete
			w.sendEvent(event)
			continue
		}

		parser, err := w.registry.CreateForExtension(filepath.Ext(path), w.config.Root)
		if err != nil {
			event.Error = err
			w.sendEvent(event)
			continue
		}

		result, err := parser.ParseFile(ctx, path)
		if err != nil {
			event.Error = err
			w.sendEvent(event)
			continue
		}

		oldHash, hadHash := w.Hash(relPath)
		if hadHash && oldHash == result.Hash {
			continue
		}
		w.SetHash(relPath, result.Hash)

		if op.Has(fsnotify.Create) || !hadHash {
			event.Operation = OpCreate
		} else {
			event.Operation = OpModify
		}
		event.Result = result

		w.sendEvent(event)
	}
}

func (w *Watcher) sendEvent(event WatchEvent) {
	select {
	case w.events <- event:
	default:
		w.logger.Warn("event channel full, dropping event", "path", event.Path)
	}
}

// IndexDirectory performs the initial lowering of every parseable file
// under the root and seeds the hash cache for change detection.
func (w *Watcher) IndexDirectory(ctx context.Context) ([]*ParseResult, error) {
	var results []*ParseResult
	for _, lang := range w.registry.Languages() {
		parser, err := w.registry.Create(lang, w.config.Root)
		if err != nil {
			return nil, err
		}
		langResults, err := parser.ParseDirectory(ctx, w.config.Root)
		if err != nil {
			return nil, err
		}
		results = append(results, langResults...)
	}

	for _, result := range results {
		w.SetHash(result.Path, result.Hash)
	}
	return results, nil
}
