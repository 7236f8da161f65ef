// Package models defines server-side data models persisted in the database.
package models

import (
	"slices"
	"time"
)

// User is an identity as the user store hands it to the credential service.
// PasswordHash is opaque outside the user store.
type User struct {
	ID           string
	FullName     string
	Email        string
	UserName     string
	PasswordHash []byte
	IsActive     bool
	Roles        []string
	CreatedAt    time.Time
}

// HasRole reports whether role is among the roles loaded with the user.
func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}
