// Package fs holds the entry model of the simulated namespace together with
// the pure helpers the engine and the presentation layer share: path
// decomposition, extension extraction, ordering and display formatting.
package fs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes files from folders.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// timeLayout matches the ISO-8601 form written by browsers (Date.toISOString).
const timeLayout = "2006-01-02T15:04:05.000Z"

// Entry is a single file or folder record stored under a path key.
type Entry struct {
	ID        string
	Name      string
	Kind      Kind
	Size      int64 // files only
	Modified  time.Time
	Path      string
	Extension string
}

// Upload describes one file handed to the engine by a file picker.
type Upload struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// NewFile builds a file entry living in parent.
func NewFile(parent, name string, size int64, now time.Time) Entry {
	if size < 0 {
		size = 0
	}
	return Entry{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      KindFile,
		Size:      size,
		Modified:  Timestamp(now),
		Path:      JoinPath(parent, name),
		Extension: ExtensionOf(name),
	}
}

// NewFolder builds a folder entry living in parent.
func NewFolder(parent, name string, now time.Time) Entry {
	return Entry{
		ID:       uuid.NewString(),
		Name:     name,
		Kind:     KindFolder,
		Modified: Timestamp(now),
		Path:     JoinPath(parent, name),
	}
}

// Timestamp normalizes t to the precision that survives a JSON round trip.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// IsDir reports whether the entry is a folder.
func (e Entry) IsDir() bool {
	return e.Kind == KindFolder
}

// wireEntry is the persisted shape shared with existing stored state.
type wireEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      Kind   `json:"type"`
	Size      *int64 `json:"size,omitempty"`
	Modified  string `json:"modified"`
	Path      string `json:"path"`
	Extension string `json:"extension,omitempty"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	w := wireEntry{
		ID:        e.ID,
		Name:      e.Name,
		Kind:      e.Kind,
		Modified:  e.Modified.UTC().Format(timeLayout),
		Path:      e.Path,
		Extension: e.Extension,
	}
	if e.Kind == KindFile {
		size := e.Size
		w.Size = &size
	}
	return json.Marshal(w)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch w.Kind {
	case KindFile, KindFolder:
	default:
		return fmt.Errorf("entry %q: unknown type %q", w.Name, w.Kind)
	}

	var modified time.Time
	if w.Modified != "" {
		t, err := time.Parse(time.RFC3339Nano, w.Modified)
		if err != nil {
			return fmt.Errorf("entry %q: bad modified time: %w", w.Name, err)
		}
		modified = t.UTC()
	}

	*e = Entry{
		ID:        w.ID,
		Name:      w.Name,
		Kind:      w.Kind,
		Modified:  modified,
		Path:      w.Path,
		Extension: w.Extension,
	}
	if w.Size != nil && w.Kind == KindFile {
		e.Size = *w.Size
	}
	return nil
}

// Clone returns a copy of entries that shares no backing array.
func Clone(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
