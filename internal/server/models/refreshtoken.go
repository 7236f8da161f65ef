package models

import "time"

// TokenState is the computed lifecycle state of a refresh token.
type TokenState string

const (
	TokenActive  TokenState = "active"
	TokenRevoked TokenState = "revoked"
	TokenExpired TokenState = "expired"
)

// RefreshToken is one persisted refresh credential. Token is the opaque value
// handed to the client and the primary key. RevokedAt is set once and never
// cleared; ReplacedBy is only set when the token was rotated.
type RefreshToken struct {
	Token      string     `json:"token"`
	UserID     string     `json:"user_id"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy string     `json:"replaced_by,omitempty"`
}

// IsExpired is true from the expiry instant onwards.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsExpired(now) && !t.IsRevoked()
}

// WasRotated reports whether the token was revoked in favour of a successor.
// Presenting such a token again is the reuse signal.
func (t *RefreshToken) WasRotated() bool {
	return t.IsRevoked() && t.ReplacedBy != ""
}

// State folds the predicates into one value; revocation wins over expiry.
func (t *RefreshToken) State(now time.Time) TokenState {
	switch {
	case t.IsRevoked():
		return TokenRevoked
	case t.IsExpired(now):
		return TokenExpired
	default:
		return TokenActive
	}
}
