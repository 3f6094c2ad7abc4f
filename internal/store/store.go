// Package store persists the simulated namespace: a mapping from path key to
// the ordered entries of that directory. The whole mapping is one JSON blob
// kept under a single well-known key by a pluggable Medium.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/justyntemme/filepane/internal/fs"
)

// DefaultKey is the key the namespace blob is stored under.
const DefaultKey = "fileManagerData"

var (
	// ErrStorage marks failures of the persistence medium.
	ErrStorage = errors.New("storage failure")
	// ErrConflict is returned by WriteIfVersion when the path changed underneath.
	ErrConflict = errors.New("version conflict")
	// ErrQuotaExceeded is returned by media that enforce a size limit.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// UpdateFunc receives the current entries of a path and returns the
// replacement. Returning an error aborts the update without writing.
type UpdateFunc func(entries []fs.Entry) ([]fs.Entry, error)

// Store is the path-keyed namespace.
type Store interface {
	// EnsureInitialized seeds the root key once. Safe to call repeatedly.
	EnsureInitialized(ctx context.Context) error
	// Read returns the entries of path, empty when the key is absent.
	Read(ctx context.Context, path string) ([]fs.Entry, error)
	// Write replaces the entries of path.
	Write(ctx context.Context, path string, entries []fs.Entry) error
	// Update performs an atomic read-modify-write of path.
	Update(ctx context.Context, path string, fn UpdateFunc) error
	// ReadVersion returns the entries of path with its version stamp.
	ReadVersion(ctx context.Context, path string) ([]fs.Entry, uint64, error)
	// WriteIfVersion writes only if path is still at version.
	WriteIfVersion(ctx context.Context, path string, version uint64, entries []fs.Entry) error
	Close() error
}

// Error describes a failed storage operation. It matches ErrStorage as well
// as the underlying cause with errors.Is.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// Namespace is the in-memory form of the persisted blob.
type Namespace map[string][]fs.Entry

// EncodeNamespace serializes ns into the persisted blob shape.
func EncodeNamespace(ns Namespace) ([]byte, error) {
	out := make(map[string][]fs.Entry, len(ns))
	for k, v := range ns {
		if v == nil {
			v = []fs.Entry{}
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// DecodeNamespace parses a persisted blob. Empty input is an empty namespace.
func DecodeNamespace(data []byte) (Namespace, error) {
	ns := make(Namespace)
	if len(data) == 0 {
		return ns, nil
	}
	if err := json.Unmarshal(data, &ns); err != nil {
		return nil, err
	}
	if ns == nil {
		ns = make(Namespace)
	}
	for k, v := range ns {
		if v == nil {
			ns[k] = []fs.Entry{}
		}
	}
	return ns, nil
}
