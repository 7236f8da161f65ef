// Package refreshtokens stores refresh tokens and implements their
// lifecycle transitions: issue, rotate, revoke.
package refreshtokens

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// ErrDuplicateToken is returned when a token value is already stored.
var ErrDuplicateToken = errors.New("duplicate refresh token")

// Repository is the refresh-token store. Revocation is monotonic: no method
// ever clears RevokedAt.
type Repository interface {
	// Find returns the token record, or common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Create stores a new, active record, or returns ErrDuplicateToken.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Revoke marks token revoked at "at" unless it already is. replacedBy may
	// be empty. Revoking an unknown or already revoked token is a no-op.
	Revoke(ctx context.Context, token string, at time.Time, replacedBy string) error

	// Rotate revokes old in favour of next.Token and stores next, atomically.
	// If old is no longer active at "at" nothing changes and
	// common.ErrStaleToken is returned.
	Rotate(ctx context.Context, old string, next *models.RefreshToken, at time.Time) error

	// RevokeAllForUser revokes every active token of userID and returns how
	// many were revoked. It is atomic with respect to Rotate: a rotation
	// either fails as stale or its new token is revoked too.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error)
}

// Pruner is implemented by stores whose records must be removed explicitly
// once they are past retention.
type Pruner interface {
	// ListPrunable returns up to limit records that expired or were revoked
	// before cutoff, oldest expiry first.
	ListPrunable(ctx context.Context, cutoff time.Time, limit int) ([]*models.RefreshToken, error)

	// Delete removes the given tokens and returns how many existed.
	Delete(ctx context.Context, tokens []string) (int64, error)
}
