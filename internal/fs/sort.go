package fs

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortField selects the comparator used when ordering entries.
type SortField int

const (
	SortByName SortField = iota
	SortByModified
	SortBySize
	SortByType
)

func (f SortField) String() string {
	switch f {
	case SortByModified:
		return "modified"
	case SortBySize:
		return "size"
	case SortByType:
		return "type"
	default:
		return "name"
	}
}

// ParseSortField maps a field name to its SortField.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name":
		return SortByName, nil
	case "modified", "date":
		return SortByModified, nil
	case "size":
		return SortBySize, nil
	case "type", "ext", "extension":
		return SortByType, nil
	}
	return SortByName, fmt.Errorf("unknown sort field %q", s)
}

// Sort returns a copy of entries ordered by field. Folders always precede
// files; within each group equal keys keep their input order.
func Sort(entries []Entry, field SortField, ascending bool) []Entry {
	out := Clone(entries)

	// Collators keep internal buffers and are not safe to share.
	col := collate.New(language.Und, collate.IgnoreCase)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}

		var c int
		switch field {
		case SortByModified:
			c = a.Modified.Compare(b.Modified)
		case SortBySize:
			c = compareInt64(sizeOf(a), sizeOf(b))
		case SortByType:
			c = col.CompareString(a.Extension, b.Extension)
		default:
			c = col.CompareString(a.Name, b.Name)
		}

		if !ascending {
			c = -c
		}
		return c < 0
	})
	return out
}

func sizeOf(e Entry) int64 {
	if e.IsDir() {
		return 0
	}
	return e.Size
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
