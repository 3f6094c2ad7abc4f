// Package importer copies the shape of a real directory tree (names, sizes,
// modification times) into the simulated namespace.
package importer

import (
	"context"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/justyntemme/filepane/internal/debug"
	"github.com/justyntemme/filepane/internal/fs"
	"github.com/justyntemme/filepane/internal/logging"
	"github.com/justyntemme/filepane/internal/store"
)

// Stats summarizes an import.
type Stats struct {
	Folders int
	Files   int
	Skipped int   // Files already present under the same name
	Bytes   int64 // Total size of imported files
}

type options struct {
	hidden bool
}

// Option configures Import.
type Option func(*options)

// WithHidden includes entries whose name starts with a dot.
func WithHidden() Option {
	return func(o *options) { o.hidden = true }
}

// record is one host entry found by the walk.
type record struct {
	rel     string // slash separated, relative to the walk root
	isDir   bool
	size    int64
	modTime time.Time
}

// Import walks src and records it as a folder named after src inside dest.
// Folders that already exist are reused; files whose name is already taken
// are skipped. Each directory key is written with a single store update.
func Import(ctx context.Context, st store.Store, src, dest string, opts ...Option) (Stats, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	root, err := filepath.Abs(src)
	if err != nil {
		return Stats{}, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return Stats{}, err
	}
	if !info.IsDir() {
		return Stats{}, fmt.Errorf("import %s: not a directory", src)
	}

	records, err := walk(ctx, root, o)
	if err != nil {
		return Stats{}, err
	}

	// Group children by parent, keyed by relative directory ("" is root).
	children := make(map[string][]record)
	dirs := []string{""}
	for _, r := range records {
		parent := ""
		if i := strings.LastIndexByte(r.rel, '/'); i >= 0 {
			parent = r.rel[:i]
		}
		children[parent] = append(children[parent], r)
		if r.isDir {
			dirs = append(dirs, r.rel)
		}
	}
	// Parents are written before their children.
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], "/"), strings.Count(dirs[j], "/")
		if dirs[i] == "" || dirs[j] == "" {
			return dirs[i] == ""
		}
		if di != dj {
			return di < dj
		}
		return dirs[i] < dirs[j]
	})

	dest = fs.CleanPath(dest)
	base := filepath.Base(root)
	now := time.Now()

	var stats Stats
	// The imported root itself becomes a folder in dest.
	created := false
	if err := st.Update(ctx, dest, func(entries []fs.Entry) ([]fs.Entry, error) {
		created = fs.FindFolder(entries, base) < 0
		if !created {
			return entries, nil
		}
		return append(entries, fs.NewFolder(dest, base, now)), nil
	}); err != nil {
		return stats, err
	}
	if created {
		stats.Folders++
	}

	for _, dir := range dirs {
		parent := fs.JoinPath(dest, base)
		if dir != "" {
			parent = fs.JoinPath(parent, dir)
		}
		kids := children[dir]
		sort.Slice(kids, func(i, j int) bool { return kids[i].rel < kids[j].rel })

		var added Stats
		err := st.Update(ctx, parent, func(entries []fs.Entry) ([]fs.Entry, error) {
			added = Stats{}
			taken := make(map[string]bool, len(entries))
			for _, e := range entries {
				taken[e.Name] = true
			}
			for _, r := range kids {
				name := r.rel[strings.LastIndexByte(r.rel, '/')+1:]
				if r.isDir {
					if fs.FindFolder(entries, name) >= 0 {
						continue
					}
					e := fs.NewFolder(parent, name, r.modTime)
					entries = append(entries, e)
					added.Folders++
					continue
				}
				if taken[name] {
					added.Skipped++
					continue
				}
				entries = append(entries, fs.NewFile(parent, name, r.size, r.modTime))
				added.Files++
				added.Bytes += r.size
			}
			return entries, nil
		})
		if err != nil {
			return stats, err
		}
		stats.Folders += added.Folders
		stats.Files += added.Files
		stats.Skipped += added.Skipped
		stats.Bytes += added.Bytes
	}

	logging.Info("directory imported",
		logging.String("source", root),
		logging.String("dest", dest),
		logging.Int("folders", stats.Folders),
		logging.Int("files", stats.Files),
		logging.Int("skipped", stats.Skipped),
		logging.Int64("bytes", stats.Bytes),
	)
	return stats, nil
}

func walk(ctx context.Context, root string, o options) ([]record, error) {
	var (
		mu      sync.Mutex
		records []record
	)

	conf := &fastwalk.Config{Follow: true}
	err := fastwalk.Walk(conf, root, func(fullPath string, d iofs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			debug.Log(debug.IMPORT_WALK, "walk error at %q: %v", fullPath, walkErr)
			return nil
		}
		if fullPath == root {
			return nil
		}
		if !o.hidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		info, err := fastwalk.StatDirEntry(fullPath, d)
		if err != nil {
			debug.Log(debug.IMPORT_WALK, "skipping %q: %v", fullPath, err)
			return nil
		}

		rel, err := filepath.Rel(root, fullPath)
		if err != nil {
			return nil
		}
		r := record{
			rel:     filepath.ToSlash(rel),
			isDir:   info.IsDir(),
			modTime: info.ModTime(),
		}
		if !r.isDir {
			r.size = info.Size()
		}

		mu.Lock()
		records = append(records, r)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return records, nil
}
