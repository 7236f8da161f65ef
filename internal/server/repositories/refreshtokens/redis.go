package refreshtokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"github.com/redis/go-redis/v9"
)

const (
	tokenKeyPrefix = "refresh:"
	userKeyPrefix  = "refresh_user:"
)

func tokenKey(token string) string { return tokenKeyPrefix + token }
func userKey(userID string) string { return userKeyPrefix + userID }

// maxWatchRetries bounds how often an optimistic transaction is rerun after
// a watched key changed under it.
const maxWatchRetries = 32

// RedisRepository stores each record as JSON under refresh:<token> and
// indexes a user's tokens in the set refresh_user:<id>. Keys expire
// retention after the token does, so Redis needs no pruning job.
type RedisRepository struct {
	rdb       redis.UniversalClient
	retention time.Duration
	now       timex.Clock
}

func NewRedisRepository(rdb redis.UniversalClient, retention time.Duration, clock timex.Clock) *RedisRepository {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &RedisRepository{rdb: rdb, retention: retention, now: clock}
}

func (r *RedisRepository) ttl(t *models.RefreshToken, now time.Time) time.Duration {
	ttl := t.ExpiresAt.Sub(now) + r.retention
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

// watch runs fn under WATCH keys and reruns it while the transaction aborts
// because one of them changed.
func (r *RedisRepository) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < maxWatchRetries; i++ {
		err := r.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}

func decodeToken(b []byte) (*models.RefreshToken, error) {
	t := &models.RefreshToken{}
	if err := json.Unmarshal(b, t); err != nil {
		return nil, fmt.Errorf("decode refresh token: %w", err)
	}
	return t, nil
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func get(ctx context.Context, c getter, token string) (*models.RefreshToken, error) {
	b, err := c.Get(ctx, tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return decodeToken(b)
}

func (r *RedisRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	return get(ctx, r.rdb, token)
}

// ensureAbsent fails with ErrDuplicateToken when token is already stored.
func ensureAbsent(ctx context.Context, tx *redis.Tx, token string) error {
	n, err := tx.Exists(ctx, tokenKey(token)).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if n > 0 {
		return ErrDuplicateToken
	}
	return nil
}

func (r *RedisRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	b, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode refresh token: %w", err)
	}
	ttl := r.ttl(token, r.now())

	err = r.watch(ctx, func(tx *redis.Tx) error {
		if err := ensureAbsent(ctx, tx, token.Token); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, tokenKey(token.Token), b, ttl)
			pipe.SAdd(ctx, userKey(token.UserID), token.Token)
			pipe.Expire(ctx, userKey(token.UserID), ttl)
			return nil
		})
		return err
	}, tokenKey(token.Token))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDuplicateToken):
		return ErrDuplicateToken
	default:
		return fmt.Errorf("redis error: %w", err)
	}
}

func (r *RedisRepository) Revoke(ctx context.Context, token string, at time.Time, replacedBy string) error {
	err := r.watch(ctx, func(tx *redis.Tx) error {
		t, err := get(ctx, tx, token)
		if err != nil {
			return err
		}
		if t.IsRevoked() {
			return nil
		}
		t.RevokedAt = &at
		t.ReplacedBy = replacedBy
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode refresh token: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, tokenKey(token), b, redis.KeepTTL)
			return nil
		})
		return err
	}, tokenKey(token))

	switch {
	case err == nil, errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return fmt.Errorf("redis error: %w", err)
	}
}

// Rotate watches the old key and the owner's index. If either changes
// between the read and EXEC the check is rerun, so a losing rotation or one
// overtaken by RevokeAllForUser sees a revoked token and fails as stale.
func (r *RedisRepository) Rotate(ctx context.Context, old string, next *models.RefreshToken, at time.Time) error {
	nextJSON, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode refresh token: %w", err)
	}
	ttl := r.ttl(next, at)

	err = r.watch(ctx, func(tx *redis.Tx) error {
		t, err := get(ctx, tx, old)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrStaleToken
			}
			return err
		}
		if !t.IsActive(at) {
			return common.ErrStaleToken
		}
		if err := ensureAbsent(ctx, tx, next.Token); err != nil {
			return err
		}

		t.RevokedAt = &at
		t.ReplacedBy = next.Token
		oldJSON, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode refresh token: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, tokenKey(old), oldJSON, redis.KeepTTL)
			pipe.Set(ctx, tokenKey(next.Token), nextJSON, ttl)
			pipe.SAdd(ctx, userKey(next.UserID), next.Token)
			pipe.Expire(ctx, userKey(next.UserID), ttl)
			return nil
		})
		return err
	}, tokenKey(old), tokenKey(next.Token), userKey(next.UserID))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrStaleToken), errors.Is(err, redis.TxFailedErr):
		return common.ErrStaleToken
	case errors.Is(err, ErrDuplicateToken):
		return ErrDuplicateToken
	default:
		return fmt.Errorf("redis error: %w", err)
	}
}

// RevokeAllForUser reads the user's index and every listed record under one
// WATCH and writes all revocations in a single EXEC. A rotation that adds to
// the index meanwhile aborts the EXEC and the whole pass is rerun.
func (r *RedisRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	var n int64
	err := r.watch(ctx, func(tx *redis.Tx) error {
		n = 0
		tokens, err := tx.SMembers(ctx, userKey(userID)).Result()
		if err != nil {
			return fmt.Errorf("redis error: %w", err)
		}
		if len(tokens) == 0 {
			return nil
		}

		keys := make([]string, len(tokens))
		for i, token := range tokens {
			keys[i] = tokenKey(token)
		}
		if err := tx.Watch(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis error: %w", err)
		}

		updates := make(map[string][]byte)
		var gone []any
		for _, token := range tokens {
			t, err := get(ctx, tx, token)
			if errors.Is(err, common.ErrorNotFound) {
				gone = append(gone, token)
				continue
			}
			if err != nil {
				return err
			}
			if !t.IsActive(at) {
				continue
			}
			t.RevokedAt = &at
			b, err := json.Marshal(t)
			if err != nil {
				return fmt.Errorf("encode refresh token: %w", err)
			}
			updates[tokenKey(token)] = b
		}
		if len(updates) == 0 && len(gone) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for key, b := range updates {
				pipe.Set(ctx, key, b, redis.KeepTTL)
			}
			if len(gone) > 0 {
				pipe.SRem(ctx, userKey(userID), gone...)
			}
			return nil
		})
		if err == nil {
			n = int64(len(updates))
		}
		return err
	}, userKey(userID))

	if err != nil {
		return 0, fmt.Errorf("revoke all: %w", err)
	}
	return n, nil
}
