package app

import (
	"github.com/justyntemme/filepane/internal/debug"
	"github.com/justyntemme/filepane/internal/fs"
)

// Pure session mutations. None of these touch the store; each one publishes
// the new snapshot before returning.

// ToggleSelection adds id to the selection, or removes it if present.
func (e *Engine) ToggleSelection(id string) {
	e.mu.Lock()
	removed := false
	for i, sel := range e.selection {
		if sel == id {
			e.selection = append(e.selection[:i:i], e.selection[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		e.selection = append(e.selection, id)
	}
	e.mu.Unlock()
	e.publish()
}

// ClearSelection empties the selection.
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	e.selection = nil
	e.mu.Unlock()
	e.publish()
}

// SelectAll selects every entry of the current listing in display order.
func (e *Engine) SelectAll() {
	e.mu.Lock()
	e.selection = make([]string, 0, len(e.entries))
	for _, entry := range e.entries {
		e.selection = append(e.selection, entry.ID)
	}
	e.mu.Unlock()
	e.publish()
}

// SetSort sorts by field. Choosing the current field flips the direction;
// a new field starts ascending. The listing is re-sorted without a fetch.
func (e *Engine) SetSort(field fs.SortField) {
	e.mu.Lock()
	if field == e.sortField {
		e.sortAsc = !e.sortAsc
	} else {
		e.sortField = field
		e.sortAsc = true
	}
	e.entries = fs.Sort(e.entries, e.sortField, e.sortAsc)
	debug.Log(debug.APP, "sort: %s ascending=%v", e.sortField, e.sortAsc)
	e.mu.Unlock()
	e.publish()
}

// ToggleViewMode flips between list and grid.
func (e *Engine) ToggleViewMode() {
	e.mu.Lock()
	if e.view == ViewList {
		e.view = ViewGrid
	} else {
		e.view = ViewList
	}
	e.mu.Unlock()
	e.publish()
}
