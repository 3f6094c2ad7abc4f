package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/justyntemme/filepane/internal/fs"
	"github.com/justyntemme/filepane/internal/notify"
	"github.com/justyntemme/filepane/internal/store"
)

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, st store.Store) (*Engine, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	e := New(st, Options{
		SortAscending: true,
		Notifier:      rec,
		Now:           func() time.Time { return testNow },
	})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return e, rec
}

func findByName(entries []fs.Entry, name string) (fs.Entry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return fs.Entry{}, false
}

func TestStartSeedsRootAndGoesIdle(t *testing.T) {
	st := store.NewKeyStore(store.NewMemory(0))
	e := New(st, Options{})

	if s := e.Snapshot(); s.State != StateLoading || !s.IsLoading {
		t.Errorf("before Start: expected loading, got %v", s.State)
	}
	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	s := e.Snapshot()
	if s.State != StateIdle {
		t.Errorf("after Start: expected idle, got %v", s.State)
	}
	if s.CurrentPath != "/" {
		t.Errorf("CurrentPath: expected /, got %q", s.CurrentPath)
	}
	if len(s.Breadcrumbs) != 1 || s.Breadcrumbs[0].Name != "Home" {
		t.Errorf("Breadcrumbs: expected [Home], got %v", s.Breadcrumbs)
	}
	exported, _ := st.Export(context.Background())
	if string(exported) != `{"/":[]}` {
		t.Errorf("store after Start: got %s", exported)
	}
}

func TestNavigateClearsSelectionAndSorts(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	x := []fs.Entry{
		fs.NewFile("/x", "b.txt", 5, testNow),
		fs.NewFolder("/x", "zeta", testNow),
		fs.NewFile("/x", "A.txt", 1, testNow),
	}
	if err := st.Write(ctx, "/x", x); err != nil {
		t.Fatal(err)
	}
	if err := st.Write(ctx, "/y", []fs.Entry{fs.NewFile("/y", "c.txt", 1, testNow)}); err != nil {
		t.Fatal(err)
	}
	e, _ := newTestEngine(t, st)

	for _, path := range []string{"/x", "/y", "/x"} {
		if err := e.Navigate(ctx, path); err != nil {
			t.Fatalf("Navigate(%s): %v", path, err)
		}
		e.SelectAll()
		if err := e.Navigate(ctx, path); err != nil {
			t.Fatal(err)
		}
		if s := e.Snapshot(); len(s.Selection) != 0 {
			t.Errorf("Navigate(%s): expected empty selection, got %v", path, s.Selection)
		}
	}

	stored, _ := st.Read(ctx, "/x")
	want := fs.Sort(stored, fs.SortByName, true)
	got := e.Snapshot().Entries
	if len(got) != len(want) {
		t.Fatalf("entries: expected %d, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("entries[%d]: expected %s, got %s", i, want[i].Name, got[i].Name)
		}
	}
	if got[0].Name != "zeta" || got[1].Name != "A.txt" {
		t.Errorf("expected folder first then case-insensitive names, got %s, %s", got[0].Name, got[1].Name)
	}
	if got[1].Extension != "txt" {
		t.Errorf("expected derived extension txt, got %q", got[1].Extension)
	}
}

func TestUploadThenDeleteSelected(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	existing := fs.NewFile("/", "keep.md", 3, testNow)
	if err := st.Write(ctx, "/", []fs.Entry{existing}); err != nil {
		t.Fatal(err)
	}
	e, rec := newTestEngine(t, st)

	if err := e.Upload(ctx, []fs.Upload{{Name: "a.txt", Size: 10}}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	uploaded, ok := findByName(e.Snapshot().Entries, "a.txt")
	if !ok {
		t.Fatal("uploaded file missing from listing")
	}
	if uploaded.Size != 10 || uploaded.Path != "/a.txt" || uploaded.Extension != "txt" || !uploaded.Modified.Equal(testNow) {
		t.Errorf("unexpected uploaded entry %+v", uploaded)
	}

	e.ToggleSelection(uploaded.ID)
	if err := e.DeleteSelected(ctx); err != nil {
		t.Fatalf("DeleteSelected: %v", err)
	}

	stored, _ := st.Read(ctx, "/")
	if len(stored) != 1 || stored[0].ID != existing.ID {
		t.Errorf("after delete: expected only %s, got %+v", existing.Name, stored)
	}
	if s := e.Snapshot(); len(s.Selection) != 0 {
		t.Errorf("selection after delete: expected empty, got %v", s.Selection)
	}

	msgs := rec.Messages()
	if len(msgs) != 2 || msgs[0].Text != "Uploaded 1 file" || msgs[1].Text != "Deleted 1 item" {
		t.Errorf("unexpected notifications %+v", msgs)
	}
}

func TestUploadKeepsDuplicateNames(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	e, _ := newTestEngine(t, st)

	files := []fs.Upload{{Name: "same.txt", Size: 1}, {Name: "same.txt", Size: 2}}
	if err := e.Upload(ctx, files); err != nil {
		t.Fatal(err)
	}
	stored, _ := st.Read(ctx, "/")
	if len(stored) != 2 || stored[0].ID == stored[1].ID {
		t.Errorf("expected two distinct entries named same.txt, got %+v", stored)
	}
}

func TestDeleteWithEmptySelectionIsNoop(t *testing.T) {
	st := store.NewKeyStore(store.NewMemory(0))
	e, rec := newTestEngine(t, st)
	before := e.Snapshot().Seq

	if err := e.DeleteSelected(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rec.Messages()) != 0 {
		t.Error("empty delete must not notify")
	}
	if after := e.Snapshot().Seq; after != before {
		t.Errorf("empty delete must not publish, seq moved from %d to %d", before, after)
	}
}

func TestDeleteFolderLeavesChildKey(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	e, _ := newTestEngine(t, st)

	if err := e.CreateFolder(ctx, "Docs"); err != nil {
		t.Fatal(err)
	}
	if err := st.Write(ctx, "/Docs", []fs.Entry{fs.NewFile("/Docs", "x.pdf", 1, testNow)}); err != nil {
		t.Fatal(err)
	}
	e.SelectAll()
	if err := e.DeleteSelected(ctx); err != nil {
		t.Fatal(err)
	}

	child, _ := st.Read(ctx, "/Docs")
	if len(child) != 1 {
		t.Errorf("child key of a deleted folder is kept, got %+v", child)
	}
}

func TestCreateFolder(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	e, rec := newTestEngine(t, st)

	if err := e.CreateFolder(ctx, "  Docs  "); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	folder, ok := findByName(e.Snapshot().Entries, "Docs")
	if !ok || !folder.IsDir() || folder.Path != "/Docs" {
		t.Fatalf("expected folder /Docs in listing, got %+v", e.Snapshot().Entries)
	}

	exported, _ := st.Export(ctx)
	ns, err := store.DecodeNamespace(exported)
	if err != nil {
		t.Fatal(err)
	}
	if children, ok := ns["/Docs"]; !ok || len(children) != 0 {
		t.Errorf("expected empty key /Docs, got %v (present=%v)", children, ok)
	}

	if msgs := rec.Messages(); len(msgs) != 1 || msgs[0].Text != `Created folder "Docs"` {
		t.Errorf("unexpected notifications %+v", msgs)
	}
}

func TestCreateFolderDuplicate(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	e, rec := newTestEngine(t, st)

	if err := e.CreateFolder(ctx, "Docs"); err != nil {
		t.Fatal(err)
	}
	before, _ := st.Export(ctx)

	err := e.CreateFolder(ctx, "Docs")
	if !errors.Is(err, fs.ErrDuplicateName) {
		t.Fatalf("second CreateFolder: expected ErrDuplicateName, got %v", err)
	}

	after, _ := st.Export(ctx)
	if string(before) != string(after) {
		t.Errorf("store changed by failed CreateFolder:\nbefore %s\nafter  %s", before, after)
	}
	s := e.Snapshot()
	if s.LastError != nil || s.State != StateIdle {
		t.Errorf("duplicate name must not be recorded: state %v, last error %v", s.State, s.LastError)
	}
	msgs := rec.Messages()
	if last := msgs[len(msgs)-1]; last.Level != notify.LevelError || last.Text != `A folder named "Docs" already exists` {
		t.Errorf("unexpected notification %+v", last)
	}
}

func TestCreateFolderValidation(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name    string
		message string
	}{
		{"a/b", "Folder name contains invalid characters"},
		{"what?", "Folder name contains invalid characters"},
		{"   ", "Folder name cannot be empty"},
	}

	for _, tc := range testCases {
		st := store.NewKeyStore(store.NewMemory(0))
		e, rec := newTestEngine(t, st)
		before, _ := st.Export(ctx)

		err := e.CreateFolder(ctx, tc.name)
		if !errors.Is(err, fs.ErrValidation) {
			t.Errorf("CreateFolder(%q): expected ErrValidation, got %v", tc.name, err)
			continue
		}
		after, _ := st.Export(ctx)
		if string(before) != string(after) {
			t.Errorf("CreateFolder(%q): store changed", tc.name)
		}
		if s := e.Snapshot(); s.LastError != nil {
			t.Errorf("CreateFolder(%q): validation recorded as last error", tc.name)
		}
		if msgs := rec.Messages(); len(msgs) != 1 || msgs[0].Text != tc.message {
			t.Errorf("CreateFolder(%q): expected notification %q, got %+v", tc.name, tc.message, msgs)
		}
	}
}

func TestStorageFailureRecordedAndCleared(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(200))
	e, rec := newTestEngine(t, st)

	big := make([]fs.Upload, 10)
	for i := range big {
		big[i] = fs.Upload{Name: fmt.Sprintf("file-%d.bin", i), Size: 1}
	}
	err := e.Upload(ctx, big)
	if !errors.Is(err, store.ErrStorage) {
		t.Fatalf("Upload over quota: expected ErrStorage, got %v", err)
	}

	s := e.Snapshot()
	if s.State != StateError || !errors.Is(s.LastError, store.ErrQuotaExceeded) {
		t.Errorf("expected error state with quota error, got %v / %v", s.State, s.LastError)
	}
	if s.ErrorMessage != msgUploadFailed {
		t.Errorf("ErrorMessage: expected %q, got %q", msgUploadFailed, s.ErrorMessage)
	}
	if stored, _ := st.Read(ctx, "/"); len(stored) != 0 {
		t.Errorf("failed upload must not persist entries, got %d", len(stored))
	}
	if msgs := rec.Messages(); len(msgs) != 1 || msgs[0].Level != notify.LevelError {
		t.Errorf("expected one error notification, got %+v", msgs)
	}

	// Error is not terminal
	if err := e.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if s := e.Snapshot(); s.State != StateIdle || s.LastError != nil {
		t.Errorf("after Refresh: expected idle without error, got %v / %v", s.State, s.LastError)
	}
}

// flakyMedium fails the failAt-th Save after arming, counting from one.
type flakyMedium struct {
	*store.Memory
	mu     sync.Mutex
	saves  int
	failAt int
}

func (m *flakyMedium) arm(n int) {
	m.mu.Lock()
	m.saves, m.failAt = 0, n
	m.mu.Unlock()
}

func (m *flakyMedium) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	m.saves++
	fail := m.saves == m.failAt
	m.mu.Unlock()
	if fail {
		return errors.New("disk unplugged")
	}
	return m.Memory.Save(ctx, data)
}

func TestCreateFolderChildWriteFailureLeavesParent(t *testing.T) {
	ctx := context.Background()
	medium := &flakyMedium{Memory: store.NewMemory(0)}
	st := store.NewKeyStore(medium)
	e, rec := newTestEngine(t, st)

	before, err := st.Export(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// First save adds the entry to the parent, the second seeds its key.
	medium.arm(2)
	err = e.CreateFolder(ctx, "Docs")
	if !errors.Is(err, store.ErrStorage) {
		t.Fatalf("CreateFolder: expected ErrStorage, got %v", err)
	}
	after, _ := st.Export(ctx)
	if string(after) != string(before) {
		t.Errorf("failed CreateFolder changed the store: before %s, after %s", before, after)
	}
	if s := e.Snapshot(); s.State != StateError || s.ErrorMessage != msgCreateFailed {
		t.Errorf("expected error state with %q, got %v %q", msgCreateFailed, s.State, s.ErrorMessage)
	}
	if last := rec.Messages(); len(last) == 0 || last[len(last)-1].Level != notify.LevelError {
		t.Errorf("expected an error notification, got %+v", last)
	}

	if err := e.CreateFolder(ctx, "Docs"); err != nil {
		t.Fatalf("retry: expected success, got %v", err)
	}
	root, _ := st.Read(ctx, "/")
	if len(root) != 1 || root[0].Name != "Docs" {
		t.Errorf("retry: expected a single Docs entry, got %+v", root)
	}
	blob, _ := st.Export(ctx)
	var ns map[string]json.RawMessage
	if err := json.Unmarshal(blob, &ns); err != nil {
		t.Fatal(err)
	}
	if _, ok := ns["/Docs"]; !ok {
		t.Errorf("retry: expected /Docs to be seeded, got %s", blob)
	}
}

func TestSnapshotReadsDoNotAdvanceSeq(t *testing.T) {
	st := store.NewKeyStore(store.NewMemory(0))
	e, _ := newTestEngine(t, st)

	first := e.Snapshot().Seq
	if second := e.Snapshot().Seq; second != first {
		t.Errorf("Snapshot: expected seq to stay %d, got %d", first, second)
	}
	e.ToggleViewMode()
	if after := e.Snapshot().Seq; after <= first {
		t.Errorf("ToggleViewMode: expected seq above %d, got %d", first, after)
	}
}

func TestUploadClampsNegativeSize(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	e, _ := newTestEngine(t, st)

	if err := e.Upload(ctx, []fs.Upload{{Name: "odd.bin", Size: -5}}); err != nil {
		t.Fatal(err)
	}
	stored, _ := st.Read(ctx, "/")
	if len(stored) != 1 || stored[0].Size != 0 {
		t.Errorf("Upload(size -5): expected stored size 0, got %+v", stored)
	}
}

func TestSetSort(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	if err := st.Write(ctx, "/", []fs.Entry{
		fs.NewFile("/", "small.txt", 1, testNow),
		fs.NewFile("/", "big.txt", 100, testNow),
	}); err != nil {
		t.Fatal(err)
	}
	e, _ := newTestEngine(t, st)

	e.SetSort(fs.SortBySize)
	s := e.Snapshot()
	if s.SortField != fs.SortBySize || !s.SortAscending || s.Entries[0].Name != "small.txt" {
		t.Errorf("new field: expected size ascending, got %v asc=%v first=%s", s.SortField, s.SortAscending, s.Entries[0].Name)
	}

	e.SetSort(fs.SortBySize)
	s = e.Snapshot()
	if s.SortAscending || s.Entries[0].Name != "big.txt" {
		t.Errorf("same field: expected size descending, got asc=%v first=%s", s.SortAscending, s.Entries[0].Name)
	}

	e.SetSort(fs.SortByName)
	if s := e.Snapshot(); !s.SortAscending || s.SortField != fs.SortByName {
		t.Errorf("switching field must reset to ascending, got %v asc=%v", s.SortField, s.SortAscending)
	}
}

func TestSelectionAndViewMode(t *testing.T) {
	st := store.NewKeyStore(store.NewMemory(0))
	e, _ := newTestEngine(t, st)

	e.ToggleSelection("a")
	e.ToggleSelection("b")
	e.ToggleSelection("a")
	if s := e.Snapshot(); len(s.Selection) != 1 || s.Selection[0] != "b" || !s.IsSelected("b") {
		t.Errorf("ToggleSelection: expected [b], got %v", s.Selection)
	}
	e.ClearSelection()
	if s := e.Snapshot(); len(s.Selection) != 0 {
		t.Errorf("ClearSelection: got %v", s.Selection)
	}

	e.ToggleViewMode()
	if s := e.Snapshot(); s.ViewMode != ViewGrid {
		t.Errorf("ToggleViewMode: expected grid, got %v", s.ViewMode)
	}
	e.ToggleViewMode()
	if s := e.Snapshot(); s.ViewMode != ViewList {
		t.Errorf("ToggleViewMode twice: expected list, got %v", s.ViewMode)
	}
}

func TestHistoryNavigation(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	e, _ := newTestEngine(t, st)

	if err := e.CreateFolder(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	folder, _ := findByName(e.Snapshot().Entries, "a")
	if err := e.Open(ctx, folder.ID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := e.Navigate(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if p := e.Snapshot().CurrentPath; p != "/b" {
		t.Fatalf("relative Navigate is cleaned to an absolute path, got %q", p)
	}

	steps := []struct {
		action  func() error
		path    string
		back    bool
		forward bool
	}{
		{func() error { return e.Back(ctx) }, "/a", true, true},
		{func() error { return e.Back(ctx) }, "/", false, true},
		{func() error { return e.Back(ctx) }, "/", false, true},
		{func() error { return e.Forward(ctx) }, "/a", true, true},
		{func() error { return e.Up(ctx) }, "/", true, false},
		{func() error { return e.Up(ctx) }, "/", true, false},
	}
	for i, step := range steps {
		if err := step.action(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		s := e.Snapshot()
		if s.CurrentPath != step.path || s.CanBack != step.back || s.CanForward != step.forward {
			t.Errorf("step %d: expected %s back=%v forward=%v, got %s back=%v forward=%v",
				i, step.path, step.back, step.forward, s.CurrentPath, s.CanBack, s.CanForward)
		}
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	e, _ := newTestEngine(t, st)

	if err := e.Open(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open(missing): expected ErrNotFound, got %v", err)
	}
	if err := e.Upload(ctx, []fs.Upload{{Name: "f.txt", Size: 1}}); err != nil {
		t.Fatal(err)
	}
	file, _ := findByName(e.Snapshot().Entries, "f.txt")
	if err := e.Open(ctx, file.ID); !errors.Is(err, ErrNotFolder) {
		t.Errorf("Open(file): expected ErrNotFolder, got %v", err)
	}
}

func TestRefreshKeepsExistingSelection(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	a := fs.NewFile("/", "a.txt", 1, testNow)
	b := fs.NewFile("/", "b.txt", 1, testNow)
	if err := st.Write(ctx, "/", []fs.Entry{a, b}); err != nil {
		t.Fatal(err)
	}
	e, _ := newTestEngine(t, st)

	e.SelectAll()
	// Another writer removes b
	if err := st.Write(ctx, "/", []fs.Entry{a}); err != nil {
		t.Fatal(err)
	}
	if err := e.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	s := e.Snapshot()
	if len(s.Entries) != 1 {
		t.Errorf("Refresh: expected 1 entry, got %d", len(s.Entries))
	}
	if len(s.Selection) != 1 || s.Selection[0] != a.ID {
		t.Errorf("Refresh: expected selection [%s], got %v", a.ID, s.Selection)
	}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	e, _ := newTestEngine(t, st)

	var (
		mu    sync.Mutex
		snaps []Snapshot
	)
	cancel := e.Subscribe(func(s Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	if err := e.Upload(ctx, []fs.Upload{{Name: "x.txt", Size: 1}}); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	got := append([]Snapshot(nil), snaps...)
	mu.Unlock()
	if len(got) < 2 {
		t.Fatalf("expected at least loading and final snapshots, got %d", len(got))
	}
	if !got[0].IsLoading {
		t.Error("first snapshot of an operation must be loading")
	}
	last := got[len(got)-1]
	if last.IsLoading || len(last.Entries) != 1 {
		t.Errorf("final snapshot must be idle with the upload, got loading=%v entries=%d", last.IsLoading, len(last.Entries))
	}
	// The final snapshot is visible as soon as the operation returns.
	if e.Snapshot().Entries[0].ID != last.Entries[0].ID {
		t.Error("published snapshot differs from current state")
	}

	cancel()
	e.ToggleViewMode()
	mu.Lock()
	defer mu.Unlock()
	if len(snaps) != len(got) {
		t.Errorf("cancelled subscriber still notified: %d > %d", len(snaps), len(got))
	}
}

// gateStore blocks reads of one path until released.
type gateStore struct {
	store.Store
	path    string
	release chan struct{}
	reached chan struct{}
}

func (g *gateStore) Read(ctx context.Context, path string) ([]fs.Entry, error) {
	if path == g.path {
		close(g.reached)
		<-g.release
	}
	return g.Store.Read(ctx, path)
}

func TestStaleNavigationDiscarded(t *testing.T) {
	ctx := context.Background()
	inner := store.NewKeyStore(store.NewMemory(0))
	if err := inner.Write(ctx, "/slow", []fs.Entry{fs.NewFile("/slow", "s.txt", 1, testNow)}); err != nil {
		t.Fatal(err)
	}
	if err := inner.Write(ctx, "/fast", []fs.Entry{fs.NewFile("/fast", "f.txt", 1, testNow)}); err != nil {
		t.Fatal(err)
	}
	gate := &gateStore{Store: inner, path: "/slow", release: make(chan struct{}), reached: make(chan struct{})}
	e, _ := newTestEngine(t, gate)

	done := make(chan error, 1)
	go func() { done <- e.Navigate(ctx, "/slow") }()
	<-gate.reached

	if err := e.Navigate(ctx, "/fast"); err != nil {
		t.Fatal(err)
	}
	close(gate.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	s := e.Snapshot()
	if s.CurrentPath != "/fast" || len(s.Entries) != 1 || s.Entries[0].Name != "f.txt" {
		t.Errorf("stale navigation overwrote the newer one: path %s entries %+v", s.CurrentPath, s.Entries)
	}
	if s.IsLoading {
		t.Error("engine still loading after both navigations finished")
	}
}

func TestDelayHonoursContext(t *testing.T) {
	st := store.NewKeyStore(store.NewMemory(0))
	if err := st.EnsureInitialized(context.Background()); err != nil {
		t.Fatal(err)
	}
	e := New(st, Options{Delay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := e.Start(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if s := e.Snapshot(); s.LastError != nil || s.IsLoading {
		t.Errorf("cancelled operation: expected no recorded error and not loading, got %v loading=%v", s.LastError, s.IsLoading)
	}
}

func TestConcurrentUploadsKeepEveryFile(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	e, _ := newTestEngine(t, st)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := e.Upload(ctx, []fs.Upload{{Name: fmt.Sprintf("f%d", i), Size: 1}}); err != nil {
				t.Errorf("Upload %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	stored, _ := st.Read(ctx, "/")
	if len(stored) != n {
		t.Errorf("expected %d files after concurrent uploads, got %d", n, len(stored))
	}
	if s := e.Snapshot(); s.IsLoading {
		t.Error("engine still loading after all uploads returned")
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	e, _ := newTestEngine(t, st)

	if err := e.CreateFolder(ctx, "docs"); err != nil {
		t.Fatal(err)
	}
	if err := e.Upload(ctx, []fs.Upload{{Name: "top.pdf", Size: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := st.Write(ctx, "/docs", []fs.Entry{fs.NewFile("/docs", "inner.pdf", 1, testNow)}); err != nil {
		t.Fatal(err)
	}

	shallow, err := e.Search(ctx, "ext:pdf", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(shallow) != 1 || shallow[0].Name != "top.pdf" {
		t.Errorf("depth 1: expected [top.pdf], got %+v", shallow)
	}

	deep, err := e.Search(ctx, "ext:pdf recursive:", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(deep) != 2 {
		t.Errorf("recursive: expected 2 results, got %+v", deep)
	}

	if _, err := e.Search(ctx, "ext:", 1); !errors.Is(err, ErrIncompleteQuery) {
		t.Errorf("incomplete directive: expected ErrIncompleteQuery, got %v", err)
	}
	if len(e.Snapshot().Entries) != 2 {
		t.Error("Search must not replace the listing")
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	st := store.NewKeyStore(store.NewMemory(0))
	e, _ := newTestEngine(t, st)
	if err := e.Navigate(ctx, "/a/b"); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		input    string
		expected string
	}{
		{"", "/a/b"},
		{"c", "/a/b/c"},
		{"..", "/a"},
		{"../../..", "/"},
		{"/x/./y", "/x/y"},
		{"~", "/"},
		{"~/docs", "/docs"},
	}
	for _, tc := range testCases {
		if got := e.Resolve(tc.input); got != tc.expected {
			t.Errorf("Resolve(%q): expected %q, got %q", tc.input, tc.expected, got)
		}
	}
}
