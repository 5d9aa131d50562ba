package library

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnored(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/music/.DS_Store", true},
		{"/music/track.flac.part", true},
		{"/music/playlist.json.tmp", true},
		{"/music/track.flac", false},
		{"/music/.hidden/track.flac", false},
	}
	for _, tt := range tests {
		if got := ignored(tt.path); got != tt.want {
			t.Errorf("ignored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcher_WatchesSourceTree(t *testing.T) {
	idx := newTestIndex(t)
	root := writeTree(t, map[string]string{"a/b/c.mp3": "x"})
	_, err := idx.AddSource(root)
	require.NoError(t, err)

	w, err := NewWatcher(idx, time.Second, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, 3, w.Watched(), "root, a and a/b")
}

func TestWatcher_Apply(t *testing.T) {
	idx := newTestIndex(t)
	root := t.TempDir()
	_, err := idx.AddSource(root)
	require.NoError(t, err)

	w, err := NewWatcher(idx, time.Second, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(root, "new.ogg")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	w.apply(path)

	entries, err := idx.ListEntries(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new.ogg", entries[0].Media.RelativePath())
	assert.Equal(t, KindAudio, entries[0].Media.(MediaFile).Kind)

	require.NoError(t, os.Remove(path))
	w.apply(path)

	entries, err = idx.ListEntries(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	idx := newTestIndex(t)
	w, err := NewWatcher(idx, 10*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestWatcher_CloseWaitsForInflightApply(t *testing.T) {
	idx := newTestIndex(t)
	w, err := NewWatcher(idx, time.Millisecond, zerolog.Nop())
	require.NoError(t, err)

	started := make(chan struct{})
	var finished atomic.Bool
	w.settle = func(string) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
	}

	w.handleEvent(fsnotify.Event{Name: "/music/a.mp3", Op: fsnotify.Write})
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("debounced change was never applied")
	}

	require.NoError(t, w.Close())
	assert.True(t, finished.Load(), "Close() returned while a change was still being applied")
}

func TestWatcher_CloseDropsPendingChanges(t *testing.T) {
	idx := newTestIndex(t)
	w, err := NewWatcher(idx, 50*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)

	var calls atomic.Int32
	w.settle = func(string) { calls.Add(1) }

	w.handleEvent(fsnotify.Event{Name: "/music/a.mp3", Op: fsnotify.Create})
	require.NoError(t, w.Close())
	w.handleEvent(fsnotify.Event{Name: "/music/b.mp3", Op: fsnotify.Write})

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, calls.Load())
}
