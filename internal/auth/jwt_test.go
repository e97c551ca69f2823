package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/task-manager-be/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	t.Parallel()

	s := NewSigner([]byte("super-secret"), time.Hour)

	tok, err := s.GenerateJWT("user-123")
	require.NoError(t, err)

	claims, err := s.ValidateJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
}

func TestGenerate_UniquePerCall(t *testing.T) {
	t.Parallel()

	s := NewSigner([]byte("k"), 0)

	a, err := s.GenerateJWT("u1")
	require.NoError(t, err)
	b, err := s.GenerateJWT("u1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestGenerate_NoTTLHasNoExpiry(t *testing.T) {
	t.Parallel()

	s := NewSigner([]byte("k"), 0)
	tok, err := s.GenerateJWT("u1")
	require.NoError(t, err)

	claims, err := s.ValidateJWT(tok)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestValidate_Expired(t *testing.T) {
	t.Parallel()

	s := NewSigner([]byte("k"), time.Minute)
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := s.GenerateJWT("u1")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateJWT(tok)
	require.ErrorIs(t, err, apperr.ErrExpiredToken)
}

func TestValidate_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewSigner([]byte("right-secret"), 0).GenerateJWT("u2")
	require.NoError(t, err)

	_, err = NewSigner([]byte("wrong-secret"), 0).ValidateJWT(tok)
	require.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestValidate_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NewSigner([]byte("k"), 0).ValidateJWT("not.a.jwt")
	require.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	claims := &Claims{UserID: "u1"}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewSigner([]byte("k"), 0).ValidateJWT(tok)
	require.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestValidate_MissingUserID(t *testing.T) {
	t.Parallel()

	key := []byte("k")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString(key)
	require.NoError(t, err)

	_, err = NewSigner(key, 0).ValidateJWT(tok)
	require.ErrorIs(t, err, apperr.ErrInvalidToken)
}
