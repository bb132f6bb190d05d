package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/Domenick1991/skyseat/config"
	"github.com/Domenick1991/skyseat/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OpenStore builds the configured store. The returned func releases it.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Storage.Driver == config.StorageDriverMemory {
		store := repository.NewMemoryStore()
		if cfg.Storage.FixturesPath != "" {
			data, err := os.ReadFile(cfg.Storage.FixturesPath)
			if err != nil {
				return nil, nil, fmt.Errorf("read fixtures: %w", err)
			}
			if err := store.LoadFixtures(data); err != nil {
				return nil, nil, err
			}
		}
		logger.Info("using in-memory store")
		return store, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Storage.Migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	logger.Info("connected to postgres", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))
	return repository.NewPGStore(pool), pool.Close, nil
}
