package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Unwrap(t *testing.T) {
	err := fmt.Errorf("create user: %w", Invalid("email", "must be a valid email"))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrInvalidField))
	assert.Contains(t, err.Error(), "email")

	var ve ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "email", ve.Field)
}

func TestNotAllowed(t *testing.T) {
	err := NotAllowed("owner")

	assert.True(t, errors.Is(err, ErrInvalidField))
	assert.Equal(t, "invalid update: owner: field cannot be updated", err.Error())
}

func TestValidationError_ZeroKindDefaultsToValidation(t *testing.T) {
	err := ValidationError{Reason: "bad"}

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "validation failed: bad", err.Error())
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrDuplicateEmail))
	assert.True(t, IsClientError(ErrInvalidCredentials))
	assert.True(t, IsClientError(NotAllowed("x")))
	assert.False(t, IsClientError(ErrNotFound))
	assert.False(t, IsClientError(errors.New("disk full")))
}
