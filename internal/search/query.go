package search

import (
	"strconv"
	"strings"
	"time"

	"github.com/justyntemme/filepane/internal/fs"
)

// Directive types
type DirectiveType int

const (
	DirFilename DirectiveType = iota
	DirExt
	DirSize
	DirModified
	DirKind
	DirRecursive
)

// Comparison operators for size/date
type Operator int

const (
	OpNone Operator = iota
	OpGreater
	OpLess
	OpGreaterEq
	OpLessEq
	OpEquals
)

// defaultRecursiveDepth applies to "recursive:" without a number.
const defaultRecursiveDepth = 2

// Directive represents a single search directive
type Directive struct {
	Type     DirectiveType
	Value    string
	Operator Operator
	NumValue int64     // Parsed size in bytes, or depth
	TimeVal  time.Time // Parsed date
}

// Query holds parsed search directives
type Query struct {
	Directives []Directive
	Raw        string
}

// Parse parses a search string into directives
// Examples:
//   - "foo" -> name contains foo
//   - "*.pdf" -> name glob
//   - "ext:go" -> files with .go extension
//   - "size:>1MB" -> files larger than 1MB
//   - "modified:>2024-01-01" -> entries modified after Jan 1, 2024
//   - "type:folder" -> folders only
//   - "recursive:3" -> descend three levels
func Parse(input string) *Query {
	return ParseAt(input, time.Now())
}

// ParseAt is Parse with relative dates ("today", "week") resolved against now.
func ParseAt(input string, now time.Time) *Query {
	q := &Query{Raw: input}
	input = strings.TrimSpace(input)
	if input == "" {
		return q
	}

	for _, part := range splitRespectingQuotes(input) {
		q.Directives = append(q.Directives, parseDirective(part, now))
	}
	return q
}

func splitRespectingQuotes(s string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, r := range s {
		switch {
		case (r == '"' || r == '\'') && !inQuotes:
			inQuotes = true
			quoteChar = r
		case r == quoteChar && inQuotes:
			inQuotes = false
			quoteChar = 0
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func parseDirective(s string, now time.Time) Directive {
	if idx := strings.Index(s, ":"); idx > 0 {
		directive := strings.ToLower(s[:idx])
		value := strings.Trim(s[idx+1:], "\"'")

		switch directive {
		case "filename", "name", "file":
			return Directive{Type: DirFilename, Value: value}

		case "ext", "extension":
			return Directive{Type: DirExt, Value: strings.ToLower(strings.TrimPrefix(value, "."))}

		case "type", "kind":
			switch strings.ToLower(value) {
			case "folder", "dir", "directory":
				return Directive{Type: DirKind, Value: string(fs.KindFolder)}
			case "file":
				return Directive{Type: DirKind, Value: string(fs.KindFile)}
			}
			// Anything else is an extension, as in "type:pdf"
			return Directive{Type: DirExt, Value: strings.ToLower(strings.TrimPrefix(value, "."))}

		case "size":
			op, numStr := parseOperator(value)
			return Directive{Type: DirSize, Value: value, Operator: op, NumValue: parseSize(numStr)}

		case "modified", "date", "mtime":
			op, dateStr := parseOperator(value)
			return Directive{Type: DirModified, Value: value, Operator: op, TimeVal: parseDate(dateStr, now)}

		case "recursive", "recurse", "r", "depth":
			depth := int64(defaultRecursiveDepth)
			if n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil && n > 0 {
				depth = n
			}
			return Directive{Type: DirRecursive, Value: value, NumValue: depth}
		}
	}

	return Directive{Type: DirFilename, Value: s}
}

func parseOperator(s string) (Operator, string) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, ">="):
		return OpGreaterEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, "<="):
		return OpLessEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, ">"):
		return OpGreater, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "<"):
		return OpLess, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "="):
		return OpEquals, strings.TrimSpace(s[1:])
	default:
		return OpEquals, s
	}
}

// parseSize converts size strings like "1KB", "10MB", "1GB" to bytes
func parseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))

	multiplier := int64(1)
	numStr := s

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "B"):
		numStr = s[:len(s)-1]
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(numStr), 64)
	if err != nil {
		return 0
	}
	return int64(n * float64(multiplier))
}

// parseDate parses date strings like "2024-01-01", "2024-01", "today", "yesterday"
func parseDate(s string, now time.Time) time.Time {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case "yesterday":
		y, m, d := now.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	case "year":
		return now.AddDate(-1, 0, 0)
	}

	formats := []string{
		"2006-01-02",
		"2006-01",
		"2006/01/02",
		"01/02/2006",
		"Jan 2, 2006",
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Matcher evaluates entries against a query
type Matcher struct {
	query *Query
}

// NewMatcher creates a new Matcher for the given query
func NewMatcher(q *Query) *Matcher {
	return &Matcher{query: q}
}

// Match checks if an entry matches all directives in the query (AND logic)
func (m *Matcher) Match(e fs.Entry) bool {
	for _, d := range m.query.Directives {
		if !matchDirective(d, e) {
			return false
		}
	}
	return true
}

func matchDirective(d Directive, e fs.Entry) bool {
	switch d.Type {
	case DirFilename:
		return matchGlob(strings.ToLower(e.Name), strings.ToLower(d.Value))

	case DirExt:
		if e.IsDir() {
			return false
		}
		ext := e.Extension
		if ext == "" {
			ext = fs.ExtensionOf(e.Name)
		}
		return ext == d.Value

	case DirSize:
		if e.IsDir() {
			return false
		}
		return compareInt(e.Size, d.NumValue, d.Operator)

	case DirModified:
		if d.TimeVal.IsZero() {
			return true
		}
		return compareTime(e.Modified, d.TimeVal, d.Operator)

	case DirKind:
		return string(e.Kind) == d.Value

	case DirRecursive:
		// Controls the walk, not a filter
		return true
	}
	return true
}

// matchGlob does simple glob matching with * wildcards
func matchGlob(name, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return strings.Contains(name, pattern)
	}

	parts := strings.Split(pattern, "*")

	if parts[0] != "" && !strings.HasPrefix(name, parts[0]) {
		return false
	}
	last := parts[len(parts)-1]
	if last != "" && !strings.HasSuffix(name, last) {
		return false
	}
	if len(parts[0])+len(last) > len(name) {
		return false
	}

	// Middle parts must appear in order between prefix and suffix
	pos := len(parts[0])
	end := len(name) - len(last)
	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(name[pos:end], part)
		if idx < 0 {
			return false
		}
		pos += idx + len(part)
	}
	return true
}

func compareInt(val, target int64, op Operator) bool {
	switch op {
	case OpGreater:
		return val > target
	case OpLess:
		return val < target
	case OpGreaterEq:
		return val >= target
	case OpLessEq:
		return val <= target
	default:
		return val == target
	}
}

func compareTime(val, target time.Time, op Operator) bool {
	switch op {
	case OpGreater:
		return val.After(target)
	case OpLess:
		return val.Before(target)
	case OpGreaterEq:
		return !val.Before(target)
	case OpLessEq:
		return !val.After(target)
	default:
		// Equality compares the calendar date only
		vy, vm, vd := val.Date()
		ty, tm, td := target.Date()
		return vy == ty && vm == tm && vd == td
	}
}

// IsEmpty returns true if query has no directives
func (q *Query) IsEmpty() bool {
	return len(q.Directives) == 0
}

// HasRecursive returns true if query includes a recursive directive
func (q *Query) HasRecursive() bool {
	for _, d := range q.Directives {
		if d.Type == DirRecursive {
			return true
		}
	}
	return false
}

// Depth returns the number of directory levels to search: the recursive
// directive's depth when present, otherwise fallback. Values below 1 mean
// unlimited.
func (q *Query) Depth(fallback int) int {
	for _, d := range q.Directives {
		if d.Type == DirRecursive {
			return int(d.NumValue)
		}
	}
	return fallback
}
