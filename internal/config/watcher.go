package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ErrWatcherClosed is returned when using a closed watcher.
var ErrWatcherClosed = errors.New("watcher closed")

// ReloadFunc is called after a watched file was reloaded. err is the
// result of File.Reload.
type ReloadFunc func(f *File, err error)

// Watcher reloads Files when they change on disk. It watches parent
// directories so that atomic replaces (write temp, rename) are seen.
type Watcher struct {
	mu sync.Mutex

	fsw      *fsnotify.Watcher
	log      logrus.FieldLogger
	onReload ReloadFunc
	debounce time.Duration

	files   map[string]*File
	dirs    map[string]bool
	pending map[string]time.Time
	closed  bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long a file must be quiet before it is reloaded.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithReloadFunc sets the callback run after each reload.
func WithReloadFunc(fn ReloadFunc) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher creates a watcher. Call Add for each file, then Run.
func NewWatcher(log logrus.FieldLogger, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	w := &Watcher{
		fsw:      fsw,
		log:      log.WithField("component", "config-watcher"),
		debounce: 100 * time.Millisecond,
		files:    make(map[string]*File),
		dirs:     make(map[string]bool),
		pending:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add starts watching f. The parent directory must exist.
func (w *Watcher) Add(f *File) error {
	absPath, err := filepath.Abs(f.Path())
	if err != nil {
		return err
	}
	dir := filepath.Dir(absPath)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if !w.dirs[dir] {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.files[absPath] = f
	return nil
}

// Remove stops watching f. Its directory is released once no other watched
// file lives there.
func (w *Watcher) Remove(f *File) error {
	absPath, err := filepath.Abs(f.Path())
	if err != nil {
		return err
	}
	dir := filepath.Dir(absPath)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if _, ok := w.files[absPath]; !ok {
		return nil
	}
	delete(w.files, absPath)
	delete(w.pending, absPath)

	for p := range w.files {
		if filepath.Dir(p) == dir {
			return nil
		}
	}
	delete(w.dirs, dir)
	if err := w.fsw.Remove(dir); err != nil {
		return fmt.Errorf("unwatching %s: %w", dir, err)
	}
	return nil
}

// Watched returns the absolute paths of the watched files, sorted.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.queue(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("file watcher error")

		case <-ticker.C:
			w.flush()
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) queue(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[path]; ok {
		w.pending[path] = time.Now()
	}
}

// flush reloads files whose last event is older than the debounce window.
func (w *Watcher) flush() {
	stable := time.Now().Add(-w.debounce)

	w.mu.Lock()
	var due []*File
	for path, at := range w.pending {
		if at.Before(stable) {
			due = append(due, w.files[path])
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, f := range due {
		err := f.Reload()
		if err != nil {
			w.log.WithError(err).WithField("file", f.Path()).Warn("config reload failed")
		} else {
			w.log.WithField("file", f.Path()).Debug("config reloaded")
		}
		w.notify(f, err)
	}
}

// notify runs the reload callback, recovering panics to keep the loop alive.
func (w *Watcher) notify(f *File, err error) {
	if w.onReload == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.log.WithField("panic", r).Error("config reload callback panicked")
		}
	}()
	w.onReload(f, err)
}
