package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the fixed claim set carried by every access token. Subject is the
// username, ID the per-token jti.
type Claims struct {
	jwt.RegisteredClaims
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	UserID   string   `json:"userId,omitempty"`
	Roles    []string `json:"roles"`
}

// TokenCodec mints and decodes access tokens for one issuer/audience pair.
type TokenCodec struct {
	key      *SigningKey
	issuer   string
	audience string
	validity time.Duration
	now      timex.Clock
}

// NewTokenCodec returns a codec signing with key. A nil clock means the
// system clock.
func NewTokenCodec(key *SigningKey, issuer, audience string, validity time.Duration, clock timex.Clock) *TokenCodec {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &TokenCodec{key: key, issuer: issuer, audience: audience, validity: validity, now: clock}
}

// Mint signs a fresh access token for user carrying roles.
func (c *TokenCodec) Mint(user *models.User, roles []string) (string, time.Time, error) {
	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserName,
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.validity)),
		},
		Email:    user.Email,
		FullName: user.FullName,
		UserID:   user.ID,
		Roles:    append([]string{}, roles...),
	}

	token := jwt.NewWithClaims(c.key.method, claims)
	signed, err := token.SignedString(c.key.signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// DecodeExpired checks signature, algorithm, issuer and audience but ignores
// expiry. It is only used to learn who a refresh request claims to be.
func (c *TokenCodec) DecodeExpired(tokenString string) (*Claims, error) {
	claims := &Claims{}
	p := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, err := p.ParseWithClaims(tokenString, claims, c.keyFunc); err != nil {
		return nil, mapParseError(err)
	}
	if claims.Issuer != c.issuer {
		return nil, fmt.Errorf("%w: issuer %q", common.ErrInvalidClaims, claims.Issuer)
	}
	if !slices.Contains(claims.Audience, c.audience) {
		return nil, fmt.Errorf("%w: audience", common.ErrInvalidClaims)
	}
	return claims, nil
}

// Verify is the full validation path, expiry included.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	p := jwt.NewParser(
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if _, err := p.ParseWithClaims(tokenString, claims, c.keyFunc); err != nil {
		return nil, mapParseError(err)
	}
	return claims, nil
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method == nil || t.Method.Alg() != c.key.Algorithm() {
		return nil, fmt.Errorf("%w: got %v", common.ErrAlgorithmMismatch, t.Header["alg"])
	}
	return c.key.verifyKey, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, common.ErrAlgorithmMismatch):
		return common.ErrAlgorithmMismatch
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return common.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		// unknown "alg" header
		return common.ErrAlgorithmMismatch
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %v", common.ErrInvalidClaims, err)
	default:
		return fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}
}
