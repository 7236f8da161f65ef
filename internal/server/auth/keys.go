// Package auth holds the signing key material and the access-token codec.
package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/golang-jwt/jwt/v5"
)

// SigningKey pairs a JWT signing method with the keys used to sign and
// verify with it. It is built once at startup and handed to the codec.
type SigningKey struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
}

// Algorithm returns the JWT "alg" value tokens are signed with.
func (k *SigningKey) Algorithm() string {
	return k.method.Alg()
}

// NewHMACKey returns an HS256 key. The secret is copied.
func NewHMACKey(secret []byte) (*SigningKey, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty HMAC secret")
	}
	s := append([]byte(nil), secret...)
	return &SigningKey{method: jwt.SigningMethodHS256, signKey: s, verifyKey: s}, nil
}

// NewRSAKeyFromPEM parses a PKCS#1 or PKCS#8 RSA private key for RS256.
func NewRSAKeyFromPEM(pemBytes []byte) (*SigningKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse RSA private key: %w", err)
	}
	return &SigningKey{method: jwt.SigningMethodRS256, signKey: key, verifyKey: &key.PublicKey}, nil
}

// NewECKeyFromPEM parses a P-256 private key for ES256.
func NewECKeyFromPEM(pemBytes []byte) (*SigningKey, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse EC private key: %w", err)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("ES256 requires a P-256 key, got %s", key.Curve.Params().Name)
	}
	return &SigningKey{method: jwt.SigningMethodES256, signKey: key, verifyKey: key.Public().(*ecdsa.PublicKey)}, nil
}

// readKeyFile is replaced in tests.
var readKeyFile = os.ReadFile

// LoadSigningKey builds the key selected by cfg.SigningAlgorithm.
func LoadSigningKey(cfg *config.Config) (*SigningKey, error) {
	switch cfg.SigningAlgorithm {
	case "", "HS256":
		return NewHMACKey([]byte(cfg.SecretKey))
	case "RS256", "ES256":
		b, err := readKeyFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read private key file: %w", err)
		}
		if cfg.SigningAlgorithm == "RS256" {
			return NewRSAKeyFromPEM(b)
		}
		return NewECKeyFromPEM(b)
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.SigningAlgorithm)
	}
}
