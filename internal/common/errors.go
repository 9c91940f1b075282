// Package common defines shared constants and sentinel errors used across
// client and server layers of NutriKeeper. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Validation errors: bad input supplied by the user or the caller.
	ErrValidation       = errors.New("validation error")
	ErrDuplicateAccount = fmt.Errorf("%w: account already exists", ErrValidation)

	// Auth errors. ErrInvalidCredentials is deliberately generic: it is
	// returned for unknown accounts and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("not logged in")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")

	// Environment errors.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrQuotaExceeded     = errors.New("local storage quota exceeded")
)
