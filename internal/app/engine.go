// Package app holds the navigation engine: the session controller that owns
// the current path, listing, selection, sort order and view mode, and is the
// only component that reads or writes the namespace store.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/justyntemme/filepane/internal/debug"
	"github.com/justyntemme/filepane/internal/fs"
	"github.com/justyntemme/filepane/internal/logging"
	"github.com/justyntemme/filepane/internal/metrics"
	"github.com/justyntemme/filepane/internal/notify"
	"github.com/justyntemme/filepane/internal/store"
)

// State is the engine's coarse lifecycle state.
type State int

const (
	StateLoading State = iota
	StateIdle
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateError:
		return "error"
	default:
		return "loading"
	}
}

// ViewMode selects how a presentation layer lays out the listing.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewGrid
)

func (v ViewMode) String() string {
	if v == ViewGrid {
		return "grid"
	}
	return "list"
}

// ParseViewMode maps "grid" to ViewGrid and anything else to ViewList.
func ParseViewMode(s string) ViewMode {
	if s == "grid" {
		return ViewGrid
	}
	return ViewList
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	Seq           uint64 // Increases with every published change
	CurrentPath   string
	Entries       []fs.Entry
	Selection     []string // Selected ids in selection order
	SortField     fs.SortField
	SortAscending bool
	ViewMode      ViewMode
	State         State
	IsLoading     bool
	LastError     error
	ErrorMessage  string // User-facing text for LastError
	Breadcrumbs   []fs.Crumb
	CanBack       bool
	CanForward    bool
}

// IsSelected reports whether id is in the selection.
func (s Snapshot) IsSelected(id string) bool {
	for _, sel := range s.Selection {
		if sel == id {
			return true
		}
	}
	return false
}

// Options configures an Engine.
type Options struct {
	InitialPath   string
	Delay         time.Duration // Zero or negative disables the delay
	SortField     fs.SortField
	SortAscending bool
	ViewMode      ViewMode
	HistorySize   int
	Notifier      notify.Notifier
	Now           func() time.Time
}

// Engine is the session controller. All methods are safe for concurrent use;
// operations issued while another is in flight run concurrently and rely on
// the store's atomic updates for consistency.
type Engine struct {
	store    store.Store
	notifier notify.Notifier
	delay    time.Duration
	now      func() time.Time
	initial  string

	mu        sync.Mutex
	seq       uint64
	started   bool
	path      string
	entries   []fs.Entry
	selection []string
	sortField fs.SortField
	sortAsc   bool
	view      ViewMode
	inflight  int
	lastErr   error
	errMsg    string
	hist      *history

	// navGen invalidates listings started before the latest navigation
	navGen atomic.Int64

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// New creates an engine over st. Nothing is read until Start.
func New(st store.Store, opts Options) *Engine {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.InitialPath == "" {
		opts.InitialPath = fs.RootPath
	}

	return &Engine{
		store:     st,
		notifier:  opts.Notifier,
		delay:     opts.Delay,
		now:       opts.Now,
		initial:   fs.CleanPath(opts.InitialPath),
		path:      fs.CleanPath(opts.InitialPath),
		entries:   []fs.Entry{},
		sortField: opts.SortField,
		sortAsc:   opts.SortAscending,
		view:      opts.ViewMode,
		hist:      newHistory(opts.HistorySize),
		subs:      make(map[int]func(Snapshot)),
	}
}

// Start seeds the store and lists the initial path.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.EnsureInitialized(ctx); err != nil {
		e.mu.Lock()
		e.started = true
		e.lastErr = err
		e.errMsg = msgLoadFailed
		e.mu.Unlock()
		e.publish()
		return err
	}

	e.mu.Lock()
	e.started = true
	e.mu.Unlock()
	return e.Navigate(ctx, e.initial)
}

// Snapshot returns the current session state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe registers fn to receive every published snapshot. fn runs on the
// goroutine that completed the mutation and must not block. The returned
// function unregisters fn.
func (e *Engine) Subscribe(fn func(Snapshot)) (cancel func()) {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subs, id)
			e.subMu.Unlock()
		})
	}
}

func (e *Engine) publish() {
	e.mu.Lock()
	e.seq++
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// --- Internal methods (must be called with lock held) ---

func (e *Engine) snapshotLocked() Snapshot {
	state := StateIdle
	switch {
	case !e.started || e.inflight > 0:
		state = StateLoading
	case e.lastErr != nil:
		state = StateError
	}

	selection := make([]string, len(e.selection))
	copy(selection, e.selection)

	return Snapshot{
		Seq:           e.seq,
		CurrentPath:   e.path,
		Entries:       fs.Clone(e.entries),
		Selection:     selection,
		SortField:     e.sortField,
		SortAscending: e.sortAsc,
		ViewMode:      e.view,
		State:         state,
		IsLoading:     state == StateLoading,
		LastError:     e.lastErr,
		ErrorMessage:  e.errMsg,
		Breadcrumbs:   fs.Breadcrumbs(e.path),
		CanBack:       e.hist.canBack(),
		CanForward:    e.hist.canForward(),
	}
}

func (e *Engine) setEntriesLocked(path string, entries []fs.Entry) {
	for i := range entries {
		if !entries[i].IsDir() && entries[i].Extension == "" {
			entries[i].Extension = fs.ExtensionOf(entries[i].Name)
		}
	}
	e.path = path
	e.entries = fs.Sort(entries, e.sortField, e.sortAsc)
	metrics.SetEntriesListed(len(e.entries))
}

// --- Operation lifecycle ---

// op tracks one I/O operation from begin to end.
type op struct {
	name  string
	start time.Time
}

// begin marks an operation in flight and clears the last error.
func (e *Engine) begin(name string, mutate func()) op {
	e.mu.Lock()
	e.inflight++
	e.lastErr = nil
	e.errMsg = ""
	if mutate != nil {
		mutate()
	}
	e.mu.Unlock()
	e.publish()

	debug.Log(debug.APP, "%s: started", name)
	return op{name: name, start: time.Now()}
}

// end finishes an operation. Storage failures are recorded as the last
// error; validation, duplicate-name and cancellation errors are not.
// apply, when non-nil, runs under the lock before the snapshot is published.
func (e *Engine) end(o op, err error, userMsg string, apply func()) {
	e.mu.Lock()
	e.inflight--
	if err != nil && recordable(err) {
		e.lastErr = err
		e.errMsg = userMsg
	}
	if apply != nil {
		apply()
	}
	e.mu.Unlock()
	e.publish()

	elapsed := time.Since(o.start)
	metrics.RecordOperation(o.name, elapsed, err)
	if err != nil && recordable(err) {
		logging.Warn("operation failed",
			logging.String("op", o.name), logging.Duration("elapsed", elapsed), logging.Err(err))
	}
	if err != nil {
		debug.Log(debug.APP, "%s: failed after %v: %v", o.name, elapsed, err)
	} else {
		debug.Log(debug.APP, "%s: done in %v", o.name, elapsed)
	}
}

func recordable(err error) bool {
	return !errors.Is(err, fs.ErrValidation) &&
		!errors.Is(err, fs.ErrDuplicateName) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// wait sleeps for the simulated latency or until ctx is done.
func (e *Engine) wait(ctx context.Context) error {
	if e.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(e.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// User-facing failure messages.
const (
	msgLoadFailed   = "Failed to load files. Please try again."
	msgUploadFailed = "Failed to upload files. Please try again."
	msgDeleteFailed = "Failed to delete selected items. Please try again."
	msgCreateFailed = "Failed to create folder. Please try again."
	msgImportFailed = "Failed to import directory. Please try again."
)
