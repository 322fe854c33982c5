// FILE: cfgman/watch_test.go
package cfgman_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duilio/cfgman"
)

var fastWatch = cfgman.WatchOptions{Debounce: cfgman.MinDebounce, MaxWatchers: 4}

// rewriteUntil keeps rewriting path until cond holds, since the watcher may
// not have registered its directories when the first write happens.
func rewriteUntil(t *testing.T, path, content string, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return false
		}
		return cond()
	}, 5*time.Second, 50*time.Millisecond)
}

// received reports whether an event arrived on ch, storing it in ev.
func received(ch <-chan cfgman.Event, ev *cfgman.Event) func() bool {
	return func() bool {
		select {
		case e, ok := <-ch:
			if ok {
				*ev = e
			}
			return ok
		default:
			return false
		}
	}
}

// startWatcher runs w in the background and returns a function stopping it
// and reporting the result of Run.
func startWatcher(t *testing.T, w *cfgman.Watcher) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	var (
		once   sync.Once
		result error
	)
	stop := func() error {
		once.Do(func() {
			cancel()
			select {
			case result = <-done:
			case <-time.After(5 * time.Second):
				result = errors.New("watcher did not stop")
			}
		})
		return result
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func TestWatcher(t *testing.T) {
	t.Run("ReloadsOnChange", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.toml")
		other := filepath.Join(dir, "other.toml")

		var reloads atomic.Int32
		w, err := cfgman.NewWatcher([]string{path}, func() error {
			reloads.Add(1)
			return nil
		}, fastWatch)
		require.NoError(t, err)

		ch := w.Subscribe()
		startWatcher(t, w)

		var ev cfgman.Event
		rewriteUntil(t, path, "port = 1\n", received(ch, &ev))
		assert.Equal(t, path, ev.Path)
		assert.NoError(t, ev.Err)
		assert.GreaterOrEqual(t, reloads.Load(), int32(1))

		// Files outside the watch list are ignored
		time.Sleep(100 * time.Millisecond)
		before := reloads.Load()
		require.NoError(t, os.WriteFile(other, []byte("x = 1\n"), 0644))
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, before, reloads.Load())
	})

	t.Run("ReloadErrorReported", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.toml")
		errBoom := errors.New("boom")

		w, err := cfgman.NewWatcher([]string{path}, func() error { return errBoom }, fastWatch)
		require.NoError(t, err)

		ch := w.Subscribe()
		startWatcher(t, w)

		var ev cfgman.Event
		rewriteUntil(t, path, "port = 1\n", received(ch, &ev))
		assert.ErrorIs(t, ev.Err, errBoom)
	})

	t.Run("RunOnce", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.toml")
		w, err := cfgman.NewWatcher([]string{path}, func() error { return nil }, fastWatch)
		require.NoError(t, err)

		ch := w.Subscribe()
		startWatcher(t, w)

		var ev cfgman.Event
		rewriteUntil(t, path, "port = 1\n", received(ch, &ev))
		assert.ErrorIs(t, w.Run(context.Background()), cfgman.ErrWatcherRunning)
	})

	t.Run("SubscribersClosedOnCancel", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.toml")
		w, err := cfgman.NewWatcher([]string{path}, func() error { return nil }, fastWatch)
		require.NoError(t, err)

		ch := w.Subscribe()
		stop := startWatcher(t, w)
		require.NoError(t, stop())

		_, ok := <-ch
		assert.False(t, ok)
		assert.Zero(t, w.SubscriberCount())

		_, ok = <-w.Subscribe()
		assert.False(t, ok, "subscribing to a stopped watcher yields a closed channel")
	})

	t.Run("MaxWatchers", func(t *testing.T) {
		w, err := cfgman.NewWatcher([]string{"app.toml"}, func() error { return nil },
			cfgman.WatchOptions{Debounce: time.Millisecond, MaxWatchers: 1})
		require.NoError(t, err)

		first := w.Subscribe()
		second := w.Subscribe()
		assert.Equal(t, 1, w.SubscriberCount())

		_, ok := <-second
		assert.False(t, ok)

		select {
		case <-first:
			t.Fatal("first subscriber should stay open")
		default:
		}
	})

	t.Run("RequiresReload", func(t *testing.T) {
		_, err := cfgman.NewWatcher([]string{"app.toml"}, nil, fastWatch)
		assert.Error(t, err)
	})

	t.Run("DefaultOptions", func(t *testing.T) {
		opts := cfgman.DefaultWatchOptions()
		assert.Equal(t, cfgman.DefaultDebounce, opts.Debounce)
		assert.Equal(t, cfgman.DefaultMaxWatchers, opts.MaxWatchers)
	})
}

type watchedConfig struct {
	Host string `config:"host"`
	Port int    `config:"port" validate:"gt=0"`
}

func TestWatchConfig(t *testing.T) {
	m := cfgman.New()
	_, err := cfgman.RegisterTo(m, watchedConfig{Host: "localhost", Port: 80})
	require.NoError(t, err)

	path := writeFile(t, t.TempDir(), "app.toml", "port = 8080\n")
	override := cfgman.Tree{"host": "example.com"}

	cfg, err := cfgman.Load[watchedConfig](m, cfgman.FileLoader(cfgman.FileOptions{Files: []string{path}}), override)
	require.NoError(t, err)
	assert.Equal(t, watchedConfig{Host: "example.com", Port: 8080}, cfg)

	w, err := cfgman.WatchConfig[watchedConfig](m, cfgman.WatchOptions{Debounce: 20 * time.Millisecond}, []string{path}, override)
	require.NoError(t, err)
	ch := w.Subscribe()
	startWatcher(t, w)

	rewriteUntil(t, path, "port = 9090\n", func() bool {
		cur, err := cfgman.Default[watchedConfig](m)
		return err == nil && cur.Port == 9090
	})

	cur, err := cfgman.Default[watchedConfig](m)
	require.NoError(t, err)
	assert.Equal(t, "example.com", cur.Host)

	// An invalid file keeps the last good configuration
	var ev cfgman.Event
	rewriteUntil(t, path, "port = -1\n", func() bool {
		return received(ch, &ev)() && ev.Err != nil
	})
	assert.ErrorIs(t, ev.Err, cfgman.ErrValidation)

	cur, err = cfgman.Default[watchedConfig](m)
	require.NoError(t, err)
	assert.Equal(t, 9090, cur.Port)
}
