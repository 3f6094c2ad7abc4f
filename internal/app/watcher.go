package app

import (
	"context"

	"github.com/justyntemme/filepane/internal/debug"
	"github.com/justyntemme/filepane/internal/logging"
)

// Reloader re-reads a store's backing medium and reports whether it changed.
// store.KeyStore implements it.
type Reloader interface {
	Reload(ctx context.Context) (bool, error)
}

// Follow refreshes the listing whenever changes signals that another process
// wrote the store. It returns when ctx is done or changes is closed.
func (e *Engine) Follow(ctx context.Context, changes <-chan struct{}, r Reloader) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			changed, err := r.Reload(ctx)
			if err != nil {
				logging.Warn("reload after external change failed", logging.Err(err))
				continue
			}
			if !changed {
				continue
			}
			debug.Log(debug.APP, "store changed on disk, refreshing listing")
			if err := e.Refresh(ctx); err != nil && ctx.Err() == nil {
				logging.Warn("refresh after external change failed", logging.Err(err))
			}
		}
	}
}
