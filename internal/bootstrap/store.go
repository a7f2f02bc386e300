// Package bootstrap wires the configured store for the binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"example.com/habittracker/internal/config"
	"example.com/habittracker/internal/domain"
	"example.com/habittracker/internal/persistence/memory"
	"example.com/habittracker/internal/persistence/postgres"
	"example.com/habittracker/internal/persistence/sqlite"
)

// Repository is satisfied by every store implementation.
type Repository interface {
	domain.ActivityRepository
	domain.UserRepository
}

// Store is an opened repository plus the resources behind it.
type Store struct {
	Repository Repository
	// Pool is set only for the postgres driver.
	Pool   *pgxpool.Pool
	Driver string
	close  func()
}

// Close releases the underlying connections.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects to the store named by cfg.StoreDriver. Postgres schemas are
// migrated before the store is returned.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory, "":
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		return &Store{Repository: memory.NewRepository(), Driver: config.DriverMemory}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("sqlite store ready")
		return &Store{
			Repository: sqlite.NewRepository(db),
			Driver:     config.DriverSQLite,
			close:      func() { _ = db.Close() },
		}, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		applied, err := postgres.Migrate(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info().Strs("applied", applied).Msg("postgres store ready")
		return &Store{
			Repository: postgres.NewRepository(pool),
			Pool:       pool,
			Driver:     config.DriverPostgres,
			close:      pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
