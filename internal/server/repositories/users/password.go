package users

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password CheckPolicy accepts.
const MinPasswordLength = 8

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

var bcryptCost = bcrypt.DefaultCost

// CheckPolicy requires at least MinPasswordLength characters with one upper
// case letter, one lower case letter and one digit.
func CheckPolicy(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return fmt.Errorf("%w: shorter than %d characters", common.ErrWeakCredential, MinPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: longer than %d bytes", common.ErrWeakCredential, maxPasswordBytes)
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fmt.Errorf("%w: needs upper, lower case letters and a digit", common.ErrWeakCredential)
	}
	return nil
}

// HashPassword checks the policy and returns the bcrypt hash.
func HashPassword(password string) ([]byte, error) {
	if err := CheckPolicy(password); err != nil {
		return nil, err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return h, nil
}

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("gophauth-dummy-password"), bcryptCost)
	return h
})

// VerifyPassword compares password with a stored hash. A nil user still
// costs one bcrypt comparison so unknown accounts answer as slowly as
// known ones.
func VerifyPassword(user *models.User, password string) bool {
	if user == nil || len(user.PasswordHash) == 0 {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) == nil
}

// NormalizeEmail is the form emails are stored and compared in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
