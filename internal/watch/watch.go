// Package watch raises a hint when the contents of a directory change.
// The hint is advisory: the browser never rescans on its own, it only
// suggests one, so consumers surface the change and wait for the user to
// trigger a rescan.
package watch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow suppresses the event bursts editors and copies produce
// for a single file.
const debounceWindow = 500 * time.Millisecond

// Change notes that a directory child was created, written or removed.
type Change struct {
	Name string
}

// Watcher wraps an fsnotify watcher on a single directory.
type Watcher struct {
	fsw     *fsnotify.Watcher
	changes chan Change
	done    chan struct{}
}

// New starts watching dir. Call Close when done.
func New(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		fsw:     fsw,
		changes: make(chan Change, 16),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes delivers debounced change hints. The channel is never closed;
// stop consuming after Close.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	lastSeen := make(map[string]time.Time)

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			name := filepath.Base(ev.Name)
			now := time.Now()
			if t, seen := lastSeen[name]; seen && now.Sub(t) < debounceWindow {
				continue
			}
			lastSeen[name] = now

			select {
			case w.changes <- Change{Name: name}:
			default:
				// A full channel means a hint is already pending;
				// dropping this one loses nothing.
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}
