// Package repomanager wires the user store and the refresh-token store for
// the configured backend and owns their connections.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/redis/go-redis/v9"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
	// Pruner returns the retention hook, or nil when the backend expires
	// records by itself.
	Pruner() refreshtokens.Pruner
	Close() error
}

// Seams for tests.
var (
	sqlOpen        = sql.Open
	newRedisClient = func(opts *redis.Options) redis.UniversalClient { return redis.NewClient(opts) }
)

// New opens the backend selected by cfg.Store. Postgres holds users for both
// the postgres and redis backends.
func New(ctx context.Context, cfg *config.Config) (RepositoryManager, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return NewMemoryRepositoryManager(), nil

	case config.StorePostgres, config.StoreRedis:
		db, err := sqlOpen("pgx", cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		if cfg.Store == config.StorePostgres {
			return NewPostgresRepositoryManager(db)
		}

		rdb := newRedisClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			_ = db.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisRepositoryManager(db, rdb, cfg.RetentionPeriod), nil

	default:
		return nil, fmt.Errorf("unsupported store %q", cfg.Store)
	}
}
