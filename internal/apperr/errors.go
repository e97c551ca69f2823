// Package apperr holds the error kinds shared by services, the auth gate and
// the HTTP handlers. Handlers translate kinds to status codes with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// client input
	ErrValidation         = errors.New("validation failed")
	ErrInvalidField       = errors.New("invalid update")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("unable to login")

	// access
	ErrUnauthorized = errors.New("please authenticate")
	ErrNotFound     = errors.New("not found")

	// token verification; never shown to clients, the gate collapses them to ErrUnauthorized
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError reports a single rejected field. Kind is ErrValidation or
// ErrInvalidField and is what errors.Is matches against.
type ValidationError struct {
	Field  string
	Reason string
	Kind   error
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", e.kind(), e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", e.kind(), e.Field, e.Reason)
}

func (e ValidationError) Unwrap() error { return e.kind() }

func (e ValidationError) kind() error {
	if e.Kind == nil {
		return ErrValidation
	}
	return e.Kind
}

// Invalid builds a ValidationError of kind ErrValidation.
func Invalid(field, reason string) error {
	return ValidationError{Field: field, Reason: reason, Kind: ErrValidation}
}

// NotAllowed builds a ValidationError of kind ErrInvalidField.
func NotAllowed(field string) error {
	return ValidationError{Field: field, Reason: "field cannot be updated", Kind: ErrInvalidField}
}

// IsClientError reports whether err should be answered with a 400.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrInvalidCredentials)
}
