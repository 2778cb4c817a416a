// Package crypto provides cryptographic helpers for the phonebook.
package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor used by HashPassword. Binaries set it from
// configuration; tests lower it to bcrypt.MinCost.
var BcryptCost = bcrypt.DefaultCost

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword reports whether password matches hash. The comparison is
// constant time with respect to the password.
func ComparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePasswordHash checks that hash is a well-formed bcrypt hash.
func ValidatePasswordHash(hash string) error {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		if errors.Is(err, bcrypt.ErrHashTooShort) {
			return fmt.Errorf("password hash is too short")
		}
		return fmt.Errorf("malformed password hash: %w", err)
	}
	return nil
}

// SetBcryptCost changes BcryptCost after clamping it into bcrypt's range.
func SetBcryptCost(cost int) {
	switch {
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	BcryptCost = cost
}
