// Package common defines shared constants and sentinel errors used across the
// docseal services and client. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrInternal   = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// Authentication and authorization.
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidToken        = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidServerSecret = fmt.Errorf("%w: invalid server credentials", ErrForbidden)

	// Expiry is reported apart from generic auth failures so that clients can
	// ask for a fresh login or a fresh code.
	ErrExpired      = errors.New("expired")
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrExpired)
	ErrOTPExpired   = fmt.Errorf("%w: one-time code expired", ErrExpired)

	// Registration.
	ErrInvalidCode = errors.New("invalid one-time code")

	// Cryptographic engine.
	ErrEngine           = errors.New("engine error")
	ErrCorruptEnvelope  = fmt.Errorf("%w: corrupt envelope", ErrEngine)
	ErrSignatureInvalid = errors.New("signature verification failed")

	// Dependent services.
	ErrUpstream = errors.New("upstream service unavailable")
)

// ValidationError carries the human-readable problems found in a request.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation error: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError out of one or more messages.
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}
