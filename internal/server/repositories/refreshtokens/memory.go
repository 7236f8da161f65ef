package refreshtokens

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// MemoryRepository is a mutex-guarded map. Every method copies records in
// and out so callers never share state with the store.
type MemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]*models.RefreshToken)}
}

func copyToken(t *models.RefreshToken) *models.RefreshToken {
	c := *t
	if t.RevokedAt != nil {
		at := *t.RevokedAt
		c.RevokedAt = &at
	}
	return &c
}

func (r *MemoryRepository) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyToken(t), nil
}

func (r *MemoryRepository) Create(_ context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(token)
}

func (r *MemoryRepository) insert(token *models.RefreshToken) error {
	if _, ok := r.tokens[token.Token]; ok {
		return ErrDuplicateToken
	}
	r.tokens[token.Token] = copyToken(token)
	return nil
}

func (r *MemoryRepository) Revoke(_ context.Context, token string, at time.Time, replacedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tokens[token]; ok && !t.IsRevoked() {
		t.RevokedAt = &at
		t.ReplacedBy = replacedBy
	}
	return nil
}

func (r *MemoryRepository) Rotate(_ context.Context, old string, next *models.RefreshToken, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[old]
	if !ok || !t.IsActive(at) {
		return common.ErrStaleToken
	}
	if err := r.insert(next); err != nil {
		return err
	}
	t.RevokedAt = &at
	t.ReplacedBy = next.Token
	return nil
}

func (r *MemoryRepository) RevokeAllForUser(_ context.Context, userID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, t := range r.tokens {
		if t.UserID == userID && t.IsActive(at) {
			t.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) ListPrunable(_ context.Context, cutoff time.Time, limit int) ([]*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.RefreshToken
	for _, t := range r.tokens {
		if t.ExpiresAt.Before(cutoff) || (t.RevokedAt != nil && t.RevokedAt.Before(cutoff)) {
			out = append(out, copyToken(t))
		}
	}
	slices.SortFunc(out, func(a, b *models.RefreshToken) int { return a.ExpiresAt.Compare(b.ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, tokens []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, token := range tokens {
		if _, ok := r.tokens[token]; ok {
			delete(r.tokens, token)
			n++
		}
	}
	return n, nil
}
