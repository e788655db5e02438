package knowledge

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ppiankov/cultura/internal/model"
)

// Watcher caches the parsed corpus process-wide and drops the cache whenever
// the corpus file is written, replaced or removed.
type Watcher struct {
	loader  *Loader
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	mu       sync.RWMutex
	elements []model.VerifiedElement
	loaded   bool

	// Rapid saves and tmp+rename writes settle into one invalidation
	debounce time.Duration

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	reloads       int // number of times the cache was filled, for tests
	invalidations atomic.Int32
}

const defaultDebounce = 250 * time.Millisecond

var _ Source = (*Watcher)(nil)

// NewWatcher wraps loader with a change-invalidated cache
func NewWatcher(loader *Loader) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create corpus watcher: %w", err)
	}
	return &Watcher{
		loader:   loader,
		watcher:  fsw,
		logger:   loader.logger,
		debounce: defaultDebounce,
	}, nil
}

// Start begins watching the corpus directory. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.running {
		return nil
	}

	dir := filepath.Dir(w.loader.Path())
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true
	go w.run(ctx)

	w.logger.Debug("watching corpus", zap.String("dir", dir))
	return nil
}

// Stop stops watching and waits for the event loop to exit
func (w *Watcher) Stop() {
	w.runMu.Lock()
	if !w.running {
		w.runMu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	close(w.stopCh)
	w.runMu.Unlock()

	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 5
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	// last change not yet applied; zero when nothing is pending
	var pending time.Time

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
			if filepath.Clean(event.Name) != w.loader.Path() {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Debug("corpus changed", zap.String("op", event.Op.String()))
				pending = time.Now()
			}
		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= w.debounce {
				pending = time.Time{}
				w.Invalidate()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("corpus watcher error", zap.Error(err))
		}
	}
}

// Invalidate drops the cached corpus; the next Elements call rereads the file
func (w *Watcher) Invalidate() {
	w.invalidations.Add(1)
	w.mu.Lock()
	w.loaded = false
	w.elements = nil
	w.mu.Unlock()
}

// Elements implements Source
func (w *Watcher) Elements() []model.VerifiedElement {
	w.mu.RLock()
	if w.loaded {
		elements := w.elements
		w.mu.RUnlock()
		return elements
	}
	w.mu.RUnlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loaded {
		w.elements = w.loader.LoadVerifiedElements()
		w.loaded = true
		w.reloads++
	}
	return w.elements
}

// Append delegates to the loader and drops the cache
func (w *Watcher) Append(element model.VerifiedElement) (bool, error) {
	added, err := w.loader.Append(element)
	if added {
		w.Invalidate()
	}
	return added, err
}
