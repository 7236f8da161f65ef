package users

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory. Used by the memory store
// backend and by service tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
	byName  map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
		byName:  make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User, password string) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := *user
	u.ID = uuid.NewString()
	u.Email = NormalizeEmail(user.Email)
	u.PasswordHash = hash
	u.IsActive = true
	u.CreatedAt = time.Now().UTC()
	u.Roles = slices.Sorted(slices.Values(user.Roles))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[u.Email]; ok {
		return nil, common.ErrDuplicateEmail
	}
	if _, ok := r.byName[u.UserName]; ok {
		return nil, common.ErrDuplicateUsername
	}

	r.byID[u.ID] = &u
	r.byEmail[u.Email] = u.ID
	r.byName[u.UserName] = u.ID

	return clone(&u), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(u), nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) ListRoles(_ context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[userID]
	if !ok {
		return []string{}, nil
	}
	return slices.Clone(u.Roles), nil
}

func (r *MemoryRepository) SetActive(_ context.Context, userID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsActive = active
	return nil
}

// SetRoles replaces a user's roles. There is no role administration API, so
// this exists for seeding and tests.
func (r *MemoryRepository) SetRoles(userID string, roles []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.Roles = slices.Sorted(slices.Values(roles))
	return nil
}

func clone(u *models.User) *models.User {
	c := *u
	c.Roles = slices.Clone(u.Roles)
	c.PasswordHash = slices.Clone(u.PasswordHash)
	return &c
}
