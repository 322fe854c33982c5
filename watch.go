// FILE: cfgman/watch.go
package cfgman

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ErrWatcherRunning is returned when Run is called on a running watcher.
var ErrWatcherRunning = errors.New("watcher already running")

// WatchOptions configures file watching behavior
type WatchOptions struct {
	// Debounce duration to avoid rapid reloads
	Debounce time.Duration

	// MaxWatchers limits concurrent subscriber channels
	MaxWatchers int
}

// DefaultWatchOptions returns sensible defaults for file watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		Debounce:    DefaultDebounce,
		MaxWatchers: DefaultMaxWatchers,
	}
}

// Event reports one reload triggered by a file change. Err is set when the
// reload failed; the previous configuration stays in effect.
type Event struct {
	Path string
	Err  error
}

// Watcher reloads configuration when one of its files changes.
type Watcher struct {
	mu      sync.RWMutex
	opts    WatchOptions
	files   map[string]bool
	dirs    []string
	reload  func() error
	logger  *zerolog.Logger
	subs    map[int64]chan Event
	nextID  atomic.Int64
	running atomic.Bool
	closed  bool
}

// NewWatcher creates a watcher calling reload after changes to files settle.
// Files do not need to exist yet; their parent directories must.
func NewWatcher(files []string, reload func() error, opts WatchOptions) (*Watcher, error) {
	if reload == nil {
		return nil, fmt.Errorf("watcher requires a reload function")
	}
	if opts.Debounce < MinDebounce {
		opts.Debounce = MinDebounce
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}

	w := &Watcher{
		opts:   opts,
		files:  make(map[string]bool, len(files)),
		reload: reload,
		logger: std.log(),
		subs:   make(map[int64]chan Event),
	}
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve watched file '%s': %w", file, err)
		}
		w.files[abs] = true
		if dir := filepath.Dir(abs); !slices.Contains(w.dirs, dir) {
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Subscribe returns a channel receiving reload events. Slow subscribers miss
// events rather than block reloads. Once MaxWatchers subscribers exist, the
// returned channel is already closed. Channels are closed when Run returns.
func (w *Watcher) Subscribe() <-chan Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || len(w.subs) >= w.opts.MaxWatchers {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, subscriberBuffer)
	w.subs[w.nextID.Add(1)] = ch
	return ch
}

// SubscriberCount returns the number of open subscriber channels.
func (w *Watcher) SubscriberCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.subs)
}

// Run watches until ctx is done. It returns nil on cancellation. A Watcher
// runs once; subscribers are closed when Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrWatcherRunning
	}
	defer w.running.Store(false)
	defer w.closeSubscribers()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	// Watch directories so editors replacing files by rename are seen.
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory '%s': %w", dir, err)
		}
	}
	w.logger.Debug().Strs("dirs", w.dirs).Msg("config watcher started")

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug().Msg("config watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}

			// Debounce: reset timer on each event
			pending = event.Name
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.performReload(pending)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) performReload(path string) {
	err := w.reload()
	if err != nil {
		w.logger.Warn().Err(err).Str("file", path).Msg("config reload failed")
	} else {
		w.logger.Debug().Str("file", path).Msg("config reloaded")
	}
	w.notify(Event{Path: path, Err: err})
}

// notify sends an event to every subscriber without blocking.
func (w *Watcher) notify(ev Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (w *Watcher) closeSubscribers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, ch := range w.subs {
		close(ch)
		delete(w.subs, id)
	}
	w.closed = true
}

// WatchConfig returns a watcher that loads T from files followed by sources
// on m whenever one of the files changes. A successful reload replaces the
// defaults recorded for T.
func WatchConfig[T any](m *Manager, opts WatchOptions, files []string, sources ...Source) (*Watcher, error) {
	all := append([]Source{FileLoader(FileOptions{Files: files})}, sources...)
	w, err := NewWatcher(files, func() error {
		_, err := Load[T](m, all...)
		return err
	}, opts)
	if err != nil {
		return nil, err
	}
	w.logger = m.log()
	return w, nil
}
