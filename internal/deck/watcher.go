package deck

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/colonyops/taskdeck/internal/core/record"
)

const eventBufferSize = 100

// FileEvent is a single filesystem change delivered to the coordinator.
// Duplicates and reordering across unrelated files are possible; consumers
// must treat each event as independently idempotent per path.
type FileEvent struct {
	Path string
	Kind record.EventKind
}

// Watcher converts raw fsnotify events into a stream of FileEvents. Writes
// are debounced per path so editors that write in bursts produce a single
// change event; adds and deletes pass through immediately.
type Watcher struct {
	root    string
	watcher *fsnotify.Watcher
	events  chan FileEvent
	log     zerolog.Logger

	mu       sync.Mutex
	debounce map[string]*time.Timer
	delay    time.Duration

	done chan struct{}
	wg   sync.WaitGroup // run loop plus in-flight debounce callbacks
}

// NewWatcher creates a recursive watcher over the given root directory.
func NewWatcher(root string, delay time.Duration, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		watcher:  fsw,
		events:   make(chan FileEvent, eventBufferSize),
		log:      log.With().Str("component", "watcher").Logger(),
		debounce: make(map[string]*time.Timer),
		delay:    delay,
		done:     make(chan struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Events returns the stream of file events. The channel is closed when the
// watcher shuts down.
func (w *Watcher) Events() <-chan FileEvent {
	return w.events
}

// Close stops the watcher and closes the event stream. The stream is only
// closed once the run loop and every in-flight debounce callback have
// finished, so no send can race the close.
func (w *Watcher) Close() error {
	close(w.done)

	w.mu.Lock()
	for _, timer := range w.debounce {
		// Stop reports whether the callback was prevented from firing;
		// a fired callback retires its own WaitGroup slot.
		if timer.Stop() {
			w.wg.Done()
		}
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	close(w.events)
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.shouldIgnore(event.Name) {
		return
	}

	w.log.Debug().
		Str("path", event.Name).
		Str("op", event.Op.String()).
		Msg("file system event")

	switch {
	case event.Has(fsnotify.Create):
		// Track new directories for recursive watching
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
			return
		}
		w.emit(FileEvent{Path: event.Name, Kind: record.EventAdd})
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.emit(FileEvent{Path: event.Name, Kind: record.EventDelete})
	case event.Has(fsnotify.Write):
		w.debounceChange(event.Name)
	}
}

// debounceChange coalesces write bursts on a single path into one change
// event after the settle delay.
func (w *Watcher) debounceChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.debounce[path]; ok && timer.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.debounce[path] = time.AfterFunc(w.delay, func() {
		defer w.wg.Done()
		w.mu.Lock()
		delete(w.debounce, path)
		w.mu.Unlock()
		w.emit(FileEvent{Path: path, Kind: record.EventChange})
	})
}

func (w *Watcher) emit(ev FileEvent) {
	select {
	case w.events <- ev:
	case <-w.done:
	default:
		// Buffer full, drop rather than block the fsnotify loop
		w.log.Warn().Str("path", ev.Path).Msg("event buffer full, dropping event")
	}
}

func (w *Watcher) addRecursive(path string) error {
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			w.log.Debug().Err(err).Str("path", p).Msg("skipping path during walk")
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return w.watcher.Add(p)
		}
		return nil
	})
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}

	for _, ext := range []string{".tmp", ".lock", ".swp", ".swx", "~"} {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}

	ext := filepath.Ext(path)
	return ext != ".md" && ext != ""
}
