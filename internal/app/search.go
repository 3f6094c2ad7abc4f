package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justyntemme/filepane/internal/debug"
	"github.com/justyntemme/filepane/internal/fs"
	"github.com/justyntemme/filepane/internal/search"
)

// ErrIncompleteQuery is returned for queries ending in a directive with no
// value, such as "ext:".
var ErrIncompleteQuery = errors.New("incomplete search directive")

// Search walks the namespace below the current path and returns the entries
// matching query. depth bounds the walk (1 = current path only) unless the
// query carries its own recursive directive. The listing is not changed.
func (e *Engine) Search(ctx context.Context, query string, depth int) ([]fs.Entry, error) {
	debug.Log(debug.SEARCH, "search: query=%q depth=%d", query, depth)
	if isIncompleteDirective(query) {
		return nil, fmt.Errorf("%q: %w", query, ErrIncompleteQuery)
	}

	e.mu.Lock()
	path := e.path
	sortField, sortAsc := e.sortField, e.sortAsc
	e.mu.Unlock()

	q := search.ParseAt(query, e.now())
	o := e.begin("search", nil)

	var results []fs.Entry
	err := e.wait(ctx)
	if err == nil {
		results, err = search.Walk(ctx, e.store, path, q, q.Depth(depth))
	}
	e.end(o, err, "Search failed. Please try again.", nil)
	if err != nil {
		return nil, err
	}
	return fs.Sort(results, sortField, sortAsc), nil
}

// isIncompleteDirective checks if query has a directive prefix but no value.
// recursive: and depth: may be empty.
func isIncompleteDirective(query string) bool {
	prefixes := []string{"ext:", "size:", "modified:", "filename:", "name:", "type:"}
	for _, field := range strings.Fields(strings.ToLower(query)) {
		for _, prefix := range prefixes {
			if field == prefix {
				return true
			}
		}
	}
	return false
}
