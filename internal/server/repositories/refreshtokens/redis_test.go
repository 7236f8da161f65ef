package refreshtokens

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRepository(rdb, 24*time.Hour, nil), mr
}

func TestRedisRepository_Contract(t *testing.T) {
	storeContract(t, func(t *testing.T) Repository {
		s, _ := newRedisStore(t)
		return s
	})
}

func TestRedisRepository_KeysAndTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	tok := &models.RefreshToken{Token: "a", UserID: "u1", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Create(ctx, tok))

	assert.True(t, mr.Exists("refresh:a"))
	members, err := mr.Members("refresh_user:u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, members)

	ttl := mr.TTL("refresh:a")
	assert.Greater(t, ttl, 24*time.Hour)
	assert.LessOrEqual(t, ttl, 25*time.Hour)

	require.NoError(t, s.Revoke(ctx, "a", time.Now(), ""))
	assert.Equal(t, ttl, mr.TTL("refresh:a"), "revocation keeps the expiry")

	mr.FastForward(26 * time.Hour)
	_, err = s.Find(ctx, "a")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRedisRepository_RevokeAllDropsExpiredMembers(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	now := time.Now()

	require.NoError(t, s.Create(ctx, &models.RefreshToken{Token: "a", UserID: "u1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.Create(ctx, &models.RefreshToken{Token: "b", UserID: "u1", ExpiresAt: now.Add(time.Hour)}))
	mr.Del("refresh:a")

	n, err := s.RevokeAllForUser(ctx, "u1", now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	members, err := mr.Members("refresh_user:u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}

func TestRedisRepository_ConnectionError(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()

	_, err := s.Find(context.Background(), "a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestRedisRepository_TTLFollowsClock(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	pinned := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewRedisRepository(rdb, 24*time.Hour, func() time.Time { return pinned })

	require.NoError(t, s.Create(ctx, &models.RefreshToken{Token: "a", UserID: "u1", IssuedAt: pinned, ExpiresAt: pinned.Add(time.Hour)}))
	assert.Equal(t, 25*time.Hour, mr.TTL("refresh:a"))

	next := &models.RefreshToken{Token: "b", UserID: "u1", IssuedAt: pinned, ExpiresAt: pinned.Add(2 * time.Hour)}
	require.NoError(t, s.Rotate(ctx, "a", next, pinned.Add(30*time.Minute)))
	assert.Equal(t, 25*time.Hour+90*time.Minute, mr.TTL("refresh:b"))
}

func TestRedisRepository_DuplicateLeavesIndexAlone(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	now := time.Now()

	require.NoError(t, s.Create(ctx, &models.RefreshToken{Token: "dup", UserID: "u1", ExpiresAt: now.Add(time.Hour)}))
	err := s.Create(ctx, &models.RefreshToken{Token: "dup", UserID: "u2", ExpiresAt: now.Add(time.Hour)})
	require.ErrorIs(t, err, ErrDuplicateToken)

	assert.False(t, mr.Exists("refresh_user:u2"))
}
