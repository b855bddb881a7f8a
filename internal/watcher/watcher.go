// Package watcher triggers library re-indexing when files under the
// configured roots change on disk. Bursts of filesystem events are
// debounced into a single scan.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/lvasseur/trackdex/internal/mediastore"
)

const defaultDebounce = 2 * time.Second

// Scanner is the slice of the indexer engine the watcher drives.
type Scanner interface {
	StartIndexing(ctx context.Context, forceFullScan, forceFullRescan bool) error
}

// AutoScanGate decides whether filesystem changes should trigger a scan.
type AutoScanGate interface {
	AutoScanEnabled() bool
}

// Watcher monitors the library roots and debounces change events into
// indexing runs.
type Watcher struct {
	roots    []string
	scanner  Scanner
	gate     AutoScanGate
	log      *zap.Logger
	debounce time.Duration

	fsw  *fsnotify.Watcher
	stop chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// New starts watching the given roots and their subdirectories. A zero
// debounce selects the default.
func New(roots []string, scanner Scanner, gate AutoScanGate, log *zap.Logger, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		roots:    roots,
		scanner:  scanner,
		gate:     gate,
		log:      log,
		debounce: debounce,
		fsw:      fsw,
		stop:     make(chan struct{}),
	}

	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable subtrees are skipped, not fatal
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("filesystem watch error", zap.Error(err))
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	// New directories join the watch so deeper changes are seen too.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.log.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
		}
	}

	relevant := event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	if !relevant {
		return
	}
	if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) && !mediastore.IsAudioFile(event.Name) {
		if info, err := os.Stat(event.Name); err != nil || !info.IsDir() {
			return
		}
	}

	w.log.Debug("filesystem change", zap.String("path", event.Name), zap.String("op", event.Op.String()))
	w.schedule()
}

// schedule arms (or re-arms) the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	if !w.gate.AutoScanEnabled() {
		w.log.Debug("auto-scan disabled, ignoring filesystem changes")
		return
	}

	w.log.Info("filesystem changes settled, starting scan")
	if err := w.scanner.StartIndexing(context.Background(), false, false); err != nil {
		w.log.Error("auto-scan failed", zap.Error(err))
	}
}

// Close stops watching. In-flight scans are not interrupted.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.stop)
	return w.fsw.Close()
}
