package search

import (
	"context"

	"github.com/justyntemme/filepane/internal/debug"
	"github.com/justyntemme/filepane/internal/fs"
)

// Reader lists the entries stored under a path key.
type Reader interface {
	Read(ctx context.Context, path string) ([]fs.Entry, error)
}

// Walk searches the namespace breadth first from root, descending at most
// maxDepth levels (1 = root only, < 1 = unlimited), and returns the matching
// entries in visit order.
func Walk(ctx context.Context, r Reader, root string, q *Query, maxDepth int) ([]fs.Entry, error) {
	m := NewMatcher(q)
	root = fs.CleanPath(root)

	type dir struct {
		path  string
		depth int
	}
	queue := []dir{{path: root, depth: 1}}
	visited := map[string]bool{root: true}

	var results []fs.Entry
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		cur := queue[0]
		queue = queue[1:]

		entries, err := r.Read(ctx, cur.path)
		if err != nil {
			return results, err
		}

		for _, e := range entries {
			if m.Match(e) {
				results = append(results, e)
			}
			if !e.IsDir() || (maxDepth > 0 && cur.depth >= maxDepth) {
				continue
			}
			child := e.Path
			if child == "" {
				child = fs.JoinPath(cur.path, e.Name)
			}
			if visited[child] {
				continue
			}
			visited[child] = true
			queue = append(queue, dir{path: child, depth: cur.depth + 1})
		}
	}

	debug.Log(debug.SEARCH, "walk %s %q depth=%d: %d matches", root, q.Raw, maxDepth, len(results))
	return results, nil
}
