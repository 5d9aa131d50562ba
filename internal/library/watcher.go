package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher keeps the index current while files change under the sources.
type Watcher struct {
	index    *Index
	fw       *fsnotify.Watcher
	log      zerolog.Logger
	delay    time.Duration
	settle   func(path string)
	inflight sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	watched  map[string]struct{}
	debounce map[string]*time.Timer
}

// NewWatcher creates a watcher over every registered source. Changes to a
// path are applied once no further event arrives for delay.
func NewWatcher(index *Index, delay time.Duration, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		index:    index,
		fw:       fw,
		log:      logger.With().Str("component", "watcher").Logger(),
		delay:    delay,
		watched:  make(map[string]struct{}),
		debounce: make(map[string]*time.Timer),
	}
	w.settle = w.apply

	sources, err := index.ListSources()
	if err != nil {
		fw.Close()
		return nil, err
	}
	for _, s := range sources {
		w.addRecursive(s.Path)
	}
	w.log.Info().Int("sources", len(sources)).Int("dirs", w.Watched()).Msg("watching library")
	return w, nil
}

// Watched returns the number of directories under watch.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

func (w *Watcher) addRecursive(root string) {
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fw.Add(path); err != nil {
			w.log.Debug().Err(err).Str("dir", path).Msg("cannot watch directory")
			return nil
		}
		w.mu.Lock()
		w.watched[path] = struct{}{}
		w.mu.Unlock()
		return nil
	})
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watch error")
		case <-ctx.Done():
			w.stopTimers()
			return nil
		}
	}
}

// Close releases the underlying watcher. Pending changes are dropped and
// Close waits for the ones already being applied.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.stopTimers()
	w.inflight.Wait()
	return w.fw.Close()
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.debounce {
		t.Stop()
		delete(w.debounce, path)
	}
}

// ignored reports hidden and partially-written files.
func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, ".part")
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if ignored(event.Name) {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addRecursive(event.Name)
			return
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.debounce[event.Name]; ok {
		t.Stop()
	}
	path := event.Name
	w.debounce[path] = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		delete(w.debounce, path)
		w.inflight.Add(1)
		w.mu.Unlock()

		defer w.inflight.Done()
		w.settle(path)
	})
}

// apply reconciles one path with the disk: present files are indexed,
// missing ones removed.
func (w *Watcher) apply(path string) {
	info, err := os.Stat(path)
	if err == nil && info.Mode().IsRegular() {
		if err := w.index.AddFileByPath(path); err != nil {
			w.log.Warn().Err(err).Str("path", path).Msg("index update failed")
		}
		return
	}
	if err == nil {
		return
	}

	w.mu.Lock()
	if _, ok := w.watched[path]; ok {
		w.fw.Remove(path)
		delete(w.watched, path)
	}
	w.mu.Unlock()

	if err := w.index.RemoveFileByPath(path); err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("index removal failed")
	}
}
