// Package users is the user store the credential service authenticates
// against: identities, bcrypt password hashes and role assignments.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository persists identities. Emails are stored and looked up lowercased.
// Lookups of absent users return common.ErrorNotFound.
type Repository interface {
	// Create hashes password, stores user with the given roles and fills
	// in ID and CreatedAt. It fails with common.ErrDuplicateEmail,
	// common.ErrDuplicateUsername or common.ErrWeakCredential.
	Create(ctx context.Context, user *models.User, password string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListRoles(ctx context.Context, userID string) ([]string, error)
	SetActive(ctx context.Context, userID string, active bool) error
}
