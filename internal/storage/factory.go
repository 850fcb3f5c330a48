package storage

import (
	"context"
	"fmt"

	"ticketrouter/internal/common/errors"
	"ticketrouter/internal/config"
	"ticketrouter/internal/storage/postgres"
	"ticketrouter/internal/storage/sqlite"
)

// New creates the storage backend named by the configuration.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.DatabaseType {
	case config.DatabaseMemory:
		return NewMemoryStorage(), nil

	case config.DatabaseSQLite:
		store, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, errors.ConnectionError("failed to open sqlite database", err)
		}
		return store, nil

	case config.DatabasePostgres:
		store, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, errors.ConnectionError("failed to connect to postgres", err)
		}
		return store, nil

	default:
		return nil, errors.ConfigError(fmt.Sprintf("unknown database type: %s", cfg.DatabaseType))
	}
}
