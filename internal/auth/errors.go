package auth

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials is deliberately opaque: it never distinguishes
	// an unknown identifier from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrTokenRevoked = errors.New("token revoked")
	ErrUserExists   = errors.New("user already exists")
	ErrNotFound     = errors.New("user not found")
	ErrForbidden    = errors.New("forbidden")
)

type WeakPasswordError struct {
	Rules []string
}

func (e *WeakPasswordError) Error() string {
	return "weak password: " + strings.Join(e.Rules, ", ")
}
