// Package auth guards the settings surface. The shop runs single-operator;
// there are no user accounts, only one admin password that unlocks the
// reduction factor and price edits.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidPassword = errors.New("invalid admin password")

// AdminAuthenticator verifies the admin password against a bcrypt hash held
// in memory. The plaintext from the environment is hashed once at startup
// and discarded.
type AdminAuthenticator struct {
	passwordHash []byte
	tokens       *JWTManager
}

// NewAdminAuthenticator hashes the configured admin password and pairs it
// with a token manager for issuing session tokens.
func NewAdminAuthenticator(password string, tokens *JWTManager) (*AdminAuthenticator, error) {
	if password == "" {
		return nil, errors.New("admin password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	return &AdminAuthenticator{passwordHash: hash, tokens: tokens}, nil
}

// Login verifies the password and returns a signed session token.
func (a *AdminAuthenticator) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidPassword
	}
	return a.tokens.Generate()
}

// Verify checks a session token and returns its claims if valid.
func (a *AdminAuthenticator) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	return a.tokens.Validate(token)
}
