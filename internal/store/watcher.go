package store

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/justyntemme/filepane/internal/debug"
)

// Watcher reports changes to a blob file made by any process. Events are
// debounced so a burst of writes yields one notification.
type Watcher struct {
	watcher  *fsnotify.Watcher
	target   string
	notify   chan struct{}
	done     chan struct{}
	debounce time.Duration
	once     sync.Once
}

// NewWatcher watches the file at path. The parent directory is watched
// instead of the file itself because saves replace the file by rename.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return nil, err
	}

	fw := &Watcher{
		watcher:  w,
		target:   target,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		debounce: debounce,
	}

	go fw.run()
	debug.Log(debug.STORE, "watching %s", target)
	return fw, nil
}

func (fw *Watcher) run() {
	var lastEvent time.Time
	pending := false
	ticker := time.NewTicker(fw.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.target {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				lastEvent = time.Now()
				pending = true
				debug.Log(debug.STORE, "fsnotify event: %s on %s", event.Op, event.Name)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			debug.Log(debug.STORE, "fsnotify error: %v", err)

		case <-ticker.C:
			if pending && time.Since(lastEvent) >= fw.debounce {
				pending = false
				select {
				case fw.notify <- struct{}{}:
				default:
					// A notification is already queued
				}
			}
		}
	}
}

// Notify returns the channel that receives change notifications.
func (fw *Watcher) Notify() <-chan struct{} {
	return fw.notify
}

// Close shuts down the watcher.
func (fw *Watcher) Close() error {
	var err error
	fw.once.Do(func() {
		close(fw.done)
		err = fw.watcher.Close()
	})
	return err
}
