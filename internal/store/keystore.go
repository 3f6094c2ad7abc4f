package store

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/justyntemme/filepane/internal/debug"
	"github.com/justyntemme/filepane/internal/fs"
	"github.com/justyntemme/filepane/internal/metrics"
)

// Medium persists the namespace blob.
type Medium interface {
	// Load returns the stored blob, or nil and no error when nothing was saved yet.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	// Type names the medium ("memory", "file", "sqlite", ...).
	Type() string
	Close() error
}

// KeyStore implements Store over a single-blob Medium. The namespace is
// loaded on first access and every mutation rewrites the blob; a rejected
// save leaves the in-memory namespace untouched.
//
// All operations hold one mutex, so Update is atomic with respect to every
// other operation on the same store.
type KeyStore struct {
	mu       sync.Mutex
	medium   Medium
	ns       Namespace
	versions map[string]uint64
	loaded   bool
	last     []byte // blob as last loaded or saved
}

// NewKeyStore wraps m. Nothing is read until the first operation.
func NewKeyStore(m Medium) *KeyStore {
	return &KeyStore{
		medium:   m,
		versions: make(map[string]uint64),
	}
}

// Medium returns the underlying persistence medium.
func (s *KeyStore) Medium() Medium {
	return s.medium
}

func (s *KeyStore) EnsureInitialized(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return err
	}
	if _, ok := s.ns[fs.RootPath]; ok {
		return nil
	}
	debug.Log(debug.STORE, "seeding root key in %s medium", s.medium.Type())
	return s.putLocked(ctx, "init", fs.RootPath, []fs.Entry{})
}

func (s *KeyStore) Read(ctx context.Context, path string) ([]fs.Entry, error) {
	entries, _, err := s.ReadVersion(ctx, path)
	return entries, err
}

func (s *KeyStore) ReadVersion(ctx context.Context, path string) ([]fs.Entry, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return nil, 0, err
	}
	return fs.Clone(s.ns[path]), s.versions[path], nil
}

func (s *KeyStore) Write(ctx context.Context, path string, entries []fs.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return err
	}
	return s.putLocked(ctx, "write", path, entries)
}

func (s *KeyStore) WriteIfVersion(ctx context.Context, path string, version uint64, entries []fs.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return err
	}
	if current := s.versions[path]; current != version {
		return fmt.Errorf("%s at version %d, expected %d: %w", path, current, version, ErrConflict)
	}
	return s.putLocked(ctx, "write", path, entries)
}

func (s *KeyStore) Update(ctx context.Context, path string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return err
	}
	next, err := fn(fs.Clone(s.ns[path]))
	if err != nil {
		return err
	}
	return s.putLocked(ctx, "update", path, next)
}

// Reload re-reads the medium, picking up writes made by other processes.
// It reports whether the blob differed from the one last seen.
func (s *KeyStore) Reload(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.medium.Load(ctx)
	if err != nil {
		return false, &Error{Op: "load", Err: err}
	}
	if s.loaded && bytes.Equal(data, s.last) {
		return false, nil
	}

	ns, err := DecodeNamespace(data)
	if err != nil {
		return false, &Error{Op: "decode", Err: err}
	}

	// Any outstanding version stamp is stale after an external change.
	for k := range s.ns {
		s.versions[k]++
	}
	for k := range ns {
		if _, seen := s.ns[k]; !seen {
			s.versions[k]++
		}
	}

	s.ns = ns
	s.last = data
	s.loaded = true
	debug.Log(debug.STORE, "reloaded namespace: %d keys", len(ns))
	return true, nil
}

// Export returns the namespace blob in its persisted shape.
func (s *KeyStore) Export(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}
	return EncodeNamespace(s.ns)
}

func (s *KeyStore) Close() error {
	return s.medium.Close()
}

// --- Internal methods (must be called with lock held) ---

func (s *KeyStore) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	data, err := s.medium.Load(ctx)
	if err != nil {
		return &Error{Op: "load", Err: err}
	}
	ns, err := DecodeNamespace(data)
	if err != nil {
		return &Error{Op: "decode", Err: err}
	}

	s.ns = ns
	s.last = data
	s.loaded = true
	debug.Log(debug.STORE, "loaded namespace from %s medium: %d keys", s.medium.Type(), len(ns))
	return nil
}

func (s *KeyStore) putLocked(ctx context.Context, op, path string, entries []fs.Entry) error {
	prev, existed := s.ns[path]
	s.ns[path] = fs.Clone(entries)

	data, err := EncodeNamespace(s.ns)
	if err == nil {
		start := time.Now()
		err = s.medium.Save(ctx, data)
		metrics.RecordStoreSave(s.medium.Type(), time.Since(start), err == nil)
	}
	if err != nil {
		if existed {
			s.ns[path] = prev
		} else {
			delete(s.ns, path)
		}
		debug.Log(debug.STORE, "%s %s failed: %v", op, path, err)
		return &Error{Op: op, Path: path, Err: err}
	}

	s.last = data
	s.versions[path]++
	return nil
}
