package deck

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskdeck/internal/core/record"
)

func TestWatcherDebounceEmitsOneChange(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), 5*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	path := filepath.Join(w.root, "active", "t1", "task.md")
	for i := 0; i < 5; i++ {
		w.debounceChange(path)
	}

	select {
	case ev := <-w.Events():
		assert.Equal(t, path, ev.Path)
		assert.Equal(t, record.EventChange, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced change never emitted")
	}

	// The burst collapsed into a single event.
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected second event for %s", ev.Path)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatcherCloseWithPendingDebounce(t *testing.T) {
	// Close while debounce timers are firing: the event stream must close
	// cleanly with no send racing it.
	for i := 0; i < 50; i++ {
		w, err := NewWatcher(t.TempDir(), time.Millisecond, zerolog.Nop())
		require.NoError(t, err)

		for j := 0; j < 8; j++ {
			w.debounceChange(filepath.Join(w.root, "task.md"))
		}
		if i%2 == 1 {
			// Land some closes around the timer deadline.
			time.Sleep(time.Millisecond)
		}

		require.NoError(t, w.Close())

		for range w.Events() {
		}
	}
}

func TestWatcherCloseClosesEventStream(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	select {
	case _, ok := <-w.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("event stream not closed")
	}
}
