package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/justyntemme/filepane/internal/config"
	"github.com/justyntemme/filepane/internal/logging"
)

// Open builds the store selected by cfg. The caller owns the result and must
// Close it.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))

	var (
		medium Medium
		err    error
	)
	switch backend {
	case "", "memory":
		medium = NewMemory(cfg.QuotaBytes)
	case "file":
		medium, err = NewFile(cfg.Path)
	case "sqlite":
		medium, err = OpenSQLite(cfg.Path, cfg.Key)
	case "postgres":
		medium, err = OpenPostgres(ctx, cfg.PostgresURL, cfg.Key)
	case "s3":
		medium, err = OpenS3(ctx, S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		}, cfg.Key)
	case "remote":
		r, err := NewRemote(cfg.RemoteURL, nil)
		if err != nil {
			return nil, err
		}
		logging.Info("using remote store", logging.String("url", cfg.RemoteURL))
		return r, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", backend, err)
	}

	logging.Info("storage opened", logging.String("backend", medium.Type()))
	return NewKeyStore(medium), nil
}
