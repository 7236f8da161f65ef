package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"github.com/redis/go-redis/v9"
)

// RedisRepositoryManager keeps users in PostgreSQL and refresh tokens in Redis.
type RedisRepositoryManager struct {
	db     *sql.DB
	rdb    redis.UniversalClient
	users  *users.PostgresRepository
	tokens *refreshtokens.RedisRepository
}

func NewRedisRepositoryManager(db *sql.DB, rdb redis.UniversalClient, retention time.Duration) *RedisRepositoryManager {
	return &RedisRepositoryManager{
		db:     db,
		rdb:    rdb,
		users:  users.NewPostgresRepository(db),
		tokens: refreshtokens.NewRedisRepository(rdb, retention, timex.SystemClock),
	}
}

func (m *RedisRepositoryManager) Users() users.Repository { return m.users }

func (m *RedisRepositoryManager) RefreshTokens() refreshtokens.Repository { return m.tokens }

// Pruner is nil: Redis keys carry their own TTL.
func (m *RedisRepositoryManager) Pruner() refreshtokens.Pruner { return nil }

func (m *RedisRepositoryManager) RunMigrations(ctx context.Context) error {
	return runMigrations(ctx, m.db)
}

func (m *RedisRepositoryManager) Close() error {
	return errors.Join(m.rdb.Close(), m.db.Close())
}
