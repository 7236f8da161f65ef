// Package common defines shared constants and sentinel errors used across
// client and server layers of gophauth. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrStaleToken = errors.New("refresh token is no longer active")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// Authentication errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")

	// Registration errors.
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrWeakCredential    = errors.New("password rejected by policy")

	// Token errors.
	ErrInvalidAccessToken  = errors.New("invalid access token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrMissingSubjectClaim = errors.New("missing subject claim")

	// Codec errors.
	ErrInvalidSignature  = errors.New("invalid token signature")
	ErrMalformedToken    = errors.New("malformed token")
	ErrAlgorithmMismatch = errors.New("token algorithm mismatch")
	ErrInvalidClaims     = errors.New("invalid token claims")
	ErrTokenExpired      = errors.New("token expired")
)

// Client-facing messages. Internal distinctions between token failures, or
// between an unknown email and a wrong password, never reach the caller.
const (
	MessageInvalidCredentials = "invalid email or password"
	MessageAccountDisabled    = "account is disabled"
	MessageInvalidSession     = "invalid or expired session"
	MessageInvalidRequest     = "invalid request"
	MessageDuplicateEmail     = "email already registered"
	MessageDuplicateUsername  = "username already taken"
	MessageWeakCredential     = "password does not meet policy"
	MessageInternal           = "internal error"
)

// PublicMessage maps err to the generic message that may be shown to a client.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return MessageInvalidRequest
	case errors.Is(err, ErrInvalidCredentials):
		return MessageInvalidCredentials
	case errors.Is(err, ErrAccountDisabled):
		return MessageAccountDisabled
	case errors.Is(err, ErrDuplicateEmail):
		return MessageDuplicateEmail
	case errors.Is(err, ErrDuplicateUsername):
		return MessageDuplicateUsername
	case errors.Is(err, ErrWeakCredential):
		return MessageWeakCredential
	case IsTokenError(err):
		return MessageInvalidSession
	default:
		return MessageInternal
	}
}

// IsTokenError reports whether err belongs to the token error family.
func IsTokenError(err error) bool {
	for _, target := range []error{
		ErrInvalidAccessToken, ErrInvalidRefreshToken, ErrMissingSubjectClaim,
		ErrInvalidSignature, ErrMalformedToken, ErrAlgorithmMismatch,
		ErrInvalidClaims, ErrTokenExpired, ErrStaleToken,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
