// Package auth provides password hashing and token issuance for the Vibe Lab server.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// bcryptCost is fixed at 12: expensive enough to resist offline brute
	// force on commodity hardware, cheap enough that interactive login stays
	// well under 200ms.
	bcryptCost = 12

	// Prevent DoS attacks from massive passwords consuming CPU during hashing.
	// bcrypt itself only reads 72 bytes, but we reject earlier to catch bugs.
	maxPasswordLength = 1024
)

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	if len(password) > maxPasswordLength {
		return "", errors.New("password exceeds maximum length")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a bcrypt hash.
// A malformed hash or a mismatch both report false; callers never learn
// which, and the plaintext is never logged or returned.
func VerifyPassword(encodedHash, password string) bool {
	if len(password) > maxPasswordLength {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}
