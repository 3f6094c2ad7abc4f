package app

import (
	"context"
	"fmt"

	"github.com/justyntemme/filepane/internal/fs"
	"github.com/justyntemme/filepane/internal/importer"
	"github.com/justyntemme/filepane/internal/logging"
)

// ============================================================================
// Namespace mutations. Each one is a single atomic store update on the
// current path followed by a re-listing of that path.
// ============================================================================

// position returns the path and navigation generation a mutation applies to.
func (e *Engine) position() (string, int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path, e.navGen.Load()
}

// Upload appends one file entry per input to the current path. Names are
// taken verbatim and not checked against existing entries.
func (e *Engine) Upload(ctx context.Context, files []fs.Upload) error {
	if len(files) == 0 {
		return nil
	}
	path, gen := e.position()
	o := e.begin("upload", nil)

	err := e.wait(ctx)
	if err == nil {
		now := e.now()
		err = e.store.Update(ctx, path, func(entries []fs.Entry) ([]fs.Entry, error) {
			for _, f := range files {
				entries = append(entries, fs.NewFile(path, f.Name, f.Size, now))
			}
			return entries, nil
		})
	}

	return e.finishMutation(ctx, o, path, gen, err, msgUploadFailed,
		fmt.Sprintf("Uploaded %s", plural(len(files), "file")))
}

// DeleteSelected removes the selected entries from the current path. Child
// keys of deleted folders are left in the store.
func (e *Engine) DeleteSelected(ctx context.Context) error {
	e.mu.Lock()
	path := e.path
	gen := e.navGen.Load()
	selected := make(map[string]bool, len(e.selection))
	for _, id := range e.selection {
		selected[id] = true
	}
	e.mu.Unlock()

	if len(selected) == 0 {
		return nil
	}
	o := e.begin("delete", nil)

	removed := 0
	err := e.wait(ctx)
	if err == nil {
		err = e.store.Update(ctx, path, func(entries []fs.Entry) ([]fs.Entry, error) {
			removed = 0
			kept := make([]fs.Entry, 0, len(entries))
			for _, entry := range entries {
				if selected[entry.ID] {
					removed++
					continue
				}
				kept = append(kept, entry)
			}
			return kept, nil
		})
	}

	return e.finishMutation(ctx, o, path, gen, err, msgDeleteFailed,
		fmt.Sprintf("Deleted %s", plural(removed, "item")))
}

// CreateFolder adds a folder to the current path and seeds an empty listing
// for it. Invalid names fail with fs.ErrValidation and taken names with
// fs.ErrDuplicateName; neither touches the store or the last error.
func (e *Engine) CreateFolder(ctx context.Context, name string) error {
	name, err := fs.ValidateFolderName(name)
	if err != nil {
		e.notifier.NotifyError(validationMessage(err))
		return err
	}

	path, gen := e.position()
	o := e.begin("mkdir", nil)

	var folder fs.Entry
	err = e.wait(ctx)
	if err == nil {
		now := e.now()
		err = e.store.Update(ctx, path, func(entries []fs.Entry) ([]fs.Entry, error) {
			if fs.FindFolder(entries, name) >= 0 {
				return nil, fmt.Errorf("%w: folder %q in %s", fs.ErrDuplicateName, name, path)
			}
			folder = fs.NewFolder(path, name, now)
			return append(entries, folder), nil
		})
	}
	if err == nil {
		if err = e.store.Write(ctx, folder.Path, []fs.Entry{}); err != nil {
			e.unlinkFolder(ctx, path, folder.ID)
		}
	}

	if errorsIsDuplicate(err) {
		e.end(o, err, "", nil)
		e.notifier.NotifyError(fmt.Sprintf("A folder named %q already exists", name))
		return err
	}
	return e.finishMutation(ctx, o, path, gen, err, msgCreateFailed,
		fmt.Sprintf("Created folder %q", name))
}

// unlinkFolder removes a folder entry whose own key could not be seeded, so
// a failed CreateFolder leaves the parent as it was and can be retried.
func (e *Engine) unlinkFolder(ctx context.Context, parent, id string) {
	err := e.store.Update(ctx, parent, func(entries []fs.Entry) ([]fs.Entry, error) {
		kept := make([]fs.Entry, 0, len(entries))
		for _, entry := range entries {
			if entry.ID != id {
				kept = append(kept, entry)
			}
		}
		return kept, nil
	})
	if err != nil {
		logging.Error("folder entry left without its key",
			logging.String("parent", parent), logging.String("id", id), logging.Err(err))
	}
}

// Import copies the directory tree at dir on the host into the current path.
func (e *Engine) Import(ctx context.Context, dir string, opts ...importer.Option) (importer.Stats, error) {
	path, gen := e.position()
	o := e.begin("import", nil)

	var stats importer.Stats
	err := e.wait(ctx)
	if err == nil {
		stats, err = importer.Import(ctx, e.store, dir, path, opts...)
	}

	err = e.finishMutation(ctx, o, path, gen, err, msgImportFailed,
		fmt.Sprintf("Imported %s and %s", plural(stats.Files, "file"), plural(stats.Folders, "folder")))
	return stats, err
}

// finishMutation re-lists path after a write, ends the operation and
// notifies the outcome. The listing is applied only if no navigation
// happened since the mutation started.
func (e *Engine) finishMutation(ctx context.Context, o op, path string, gen int64, err error, failMsg, okMsg string) error {
	var entries []fs.Entry
	if err == nil {
		entries, err = e.store.Read(ctx, path)
	}
	if err != nil {
		e.end(o, err, failMsg, nil)
		e.notifier.NotifyError(failMsg)
		return err
	}

	e.end(o, nil, "", func() {
		if gen != e.navGen.Load() || e.path != path {
			return
		}
		e.selection = nil
		e.setEntriesLocked(path, entries)
	})
	e.notifier.NotifySuccess(okMsg)
	return nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
