// Package storage selects and initializes the configured object backend.
package storage

import (
	"context"
	"fmt"

	"s3snap/internal/config"
	"s3snap/pkg/logger"
	"s3snap/pkg/object"
	"s3snap/pkg/s3store"
	"s3snap/pkg/sqlite"
)

// Open returns an initialized backend for cfg.Driver. The caller owns the
// handle and must Close it.
func Open(ctx context.Context, cfg config.Config) (object.ObjectStorage, error) {
	var (
		backend object.ObjectStorage
		param   any
	)
	switch cfg.Driver {
	case config.DriverS3:
		logger.Log.Debug().
			Str("region", cfg.S3.Region).
			Str("endpoint", cfg.S3.EndpointOverride).
			Msg("using S3 as object storage backend")
		backend, param = &s3store.Storage{}, cfg.S3
	case config.DriverSQLite:
		logger.Log.Debug().
			Str("source", cfg.SQLite.Source).
			Msg("using SQLite as object storage backend")
		backend, param = &sqlite.Storage{}, cfg.SQLite
	default:
		return nil, fmt.Errorf("storage: unknown backend driver: %s", cfg.Driver)
	}

	if err := backend.Init(ctx, param); err != nil {
		return nil, fmt.Errorf("storage: init %s backend: %w", cfg.Driver, err)
	}
	return backend, nil
}
