package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justyntemme/filepane/internal/debug"
	"github.com/justyntemme/filepane/internal/fs"
)

var (
	// ErrNotFound is returned when an id is not in the current listing.
	ErrNotFound = errors.New("entry not found")
	// ErrNotFolder is returned when opening an entry that is a file.
	ErrNotFolder = errors.New("not a folder")
)

// Navigate lists path, clears the selection and records path in history.
// A navigation superseded by a newer one before it completes is discarded.
func (e *Engine) Navigate(ctx context.Context, path string) error {
	path = fs.CleanPath(path)
	return e.navigate(ctx, "navigate", path, func() { e.hist.push(path) })
}

// Up navigates to the parent of the current path. It is a no-op at the root.
func (e *Engine) Up(ctx context.Context) error {
	e.mu.Lock()
	current := e.path
	e.mu.Unlock()

	parent := fs.ParentOf(current)
	if parent == current {
		return nil
	}
	return e.Navigate(ctx, parent)
}

// Back returns to the previous location in history.
func (e *Engine) Back(ctx context.Context) error {
	return e.step(ctx, "back", -1)
}

// Forward undoes a Back.
func (e *Engine) Forward(ctx context.Context) error {
	return e.step(ctx, "forward", 1)
}

func (e *Engine) step(ctx context.Context, name string, delta int) error {
	e.mu.Lock()
	target, ok := e.hist.peek(delta)
	e.mu.Unlock()
	if !ok {
		return nil
	}
	return e.navigate(ctx, name, target, func() { e.hist.move(delta, target) })
}

// Open navigates into the folder with the given id.
func (e *Engine) Open(ctx context.Context, id string) error {
	e.mu.Lock()
	var (
		target fs.Entry
		found  bool
	)
	for _, entry := range e.entries {
		if entry.ID == id {
			target, found = entry, true
			break
		}
	}
	e.mu.Unlock()

	if !found {
		return fmt.Errorf("open %s: %w", id, ErrNotFound)
	}
	if !target.IsDir() {
		return fmt.Errorf("open %s: %w", target.Name, ErrNotFolder)
	}
	return e.Navigate(ctx, target.Path)
}

// Refresh re-lists the current path. Selected ids that still exist stay
// selected and history is left alone.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	path := e.path
	e.mu.Unlock()
	gen := e.navGen.Load()

	o := e.begin("refresh", nil)
	entries, err := e.read(ctx, path)
	if err != nil {
		e.end(o, err, msgLoadFailed, nil)
		return err
	}

	e.end(o, nil, "", func() {
		if gen != e.navGen.Load() || e.path != path {
			debug.Log(debug.APP, "refresh %s: superseded by navigation", path)
			return
		}
		e.setEntriesLocked(path, entries)
		e.selection = keepExisting(e.selection, e.entries)
	})
	return nil
}

// Resolve turns shell style input into an absolute namespace path. Relative
// input is taken from the current path; "" is the current path.
func (e *Engine) Resolve(input string) string {
	input = strings.TrimSpace(input)

	e.mu.Lock()
	current := e.path
	e.mu.Unlock()

	switch {
	case input == "":
		return current
	case input == "~":
		return fs.RootPath
	case strings.HasPrefix(input, "~/"):
		return fs.CleanPath(input[1:])
	case strings.HasPrefix(input, "/"):
		return fs.CleanPath(input)
	default:
		return fs.CleanPath(fs.JoinPath(current, input))
	}
}

// navigate lists path under a fresh generation. commit runs under the lock
// when the listing is applied.
func (e *Engine) navigate(ctx context.Context, name, path string, commit func()) error {
	gen := e.navGen.Add(1)
	o := e.begin(name, func() { e.selection = nil })

	entries, err := e.read(ctx, path)
	if gen != e.navGen.Load() {
		debug.Log(debug.APP, "%s %s: discarded, superseded by a newer navigation", name, path)
		e.end(o, nil, "", nil)
		return err
	}
	if err != nil {
		e.end(o, err, msgLoadFailed, nil)
		return err
	}

	e.end(o, nil, "", func() {
		if gen != e.navGen.Load() {
			return
		}
		e.selection = nil
		e.setEntriesLocked(path, entries)
		if commit != nil {
			commit()
		}
	})
	return nil
}

// read waits out the simulated latency and reads path.
func (e *Engine) read(ctx context.Context, path string) ([]fs.Entry, error) {
	if err := e.wait(ctx); err != nil {
		return nil, err
	}
	return e.store.Read(ctx, path)
}

// keepExisting filters ids down to those present in entries.
func keepExisting(ids []string, entries []fs.Entry) []string {
	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		present[entry.ID] = true
	}
	var out []string
	for _, id := range ids {
		if present[id] {
			out = append(out, id)
		}
	}
	return out
}
