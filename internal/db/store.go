package db

import (
	"context"
	"fmt"

	"inventory-admin/internal/config"
	"inventory-admin/internal/core"
	"inventory-admin/internal/store/postgres"
	"inventory-admin/internal/store/sqlite"

	"go.uber.org/zap"
)

// OpenStore opens the ledger store selected by cfg.DBDriver. The returned
// close function releases the underlying pool.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (core.LedgerStore, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.DBDriver {
	case "postgres", "":
		pool, err := NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to postgres")
		return postgres.New(pool), pool.Close, nil

	case "sqlite":
		store, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.SQLitePath, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing sqlite store", zap.Error(err))
			}
		}
		return store, closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown DB_DRIVER %q (want postgres or sqlite)", cfg.DBDriver)
	}
}
