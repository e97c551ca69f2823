package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/isdelr/task-manager-be/internal/apperr"
	"github.com/isdelr/task-manager-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_HashesAndNormalizes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := &models.User{Name: "  Ann ", Email: "  Ann@X.com ", Password: "secret123"}
	require.NoError(t, env.users.Create(ctx, u))

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, "ann@x.com", u.Email)
	assert.Empty(t, u.Password, "pending plaintext must be consumed")
	assert.NotEqual(t, "secret123", u.PasswordHash)
	assert.Equal(t, 0, u.Age)

	var stored string
	require.NoError(t, env.db.QueryRow(`SELECT password_hash FROM users WHERE id = ?`, u.ID).Scan(&stored))
	assert.NotContains(t, stored, "secret123")

	got, err := env.users.Authenticate(ctx, "ANN@x.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestCreate_Validation(t *testing.T) {
	cases := map[string]*models.User{
		"missing name":         {Email: "a@x.com", Password: "secret123"},
		"missing email":        {Name: "A", Password: "secret123"},
		"bad email":            {Name: "A", Email: "not-an-email", Password: "secret123"},
		"short password":       {Name: "A", Email: "a@x.com", Password: "abc123"},
		"contains password":    {Name: "A", Email: "a@x.com", Password: "myPassWord1"},
		"blank password":       {Name: "A", Email: "a@x.com", Password: "       "},
		"negative age":         {Name: "A", Email: "a@x.com", Password: "secret123", Age: -1},
		"trimmed too short pw": {Name: "A", Email: "a@x.com", Password: "  abc12  "},
		"longer than 72 bytes": {Name: "A", Email: "a@x.com", Password: strings.Repeat("a", 73)},
	}

	for name, u := range cases {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			err := env.users.Create(context.Background(), u)
			require.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestPasswordLengthLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	longest := strings.Repeat("b", 72)
	require.NoError(t, env.users.Create(ctx, &models.User{Name: "A", Email: "a@x.com", Password: longest}))
	_, err := env.users.Authenticate(ctx, "a@x.com", longest)
	require.NoError(t, err)

	u, _ := env.register(t, "Ann", "ann@x.com")
	raw, err := json.Marshal(strings.Repeat("c", 80))
	require.NoError(t, err)
	err = env.users.UpdateProfile(ctx, u, map[string]json.RawMessage{"password": raw})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.users.Authenticate(ctx, "ann@x.com", "secret123")
	require.NoError(t, err, "old password still works after a rejected change")
}

func TestCreate_DuplicateEmailCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.users.Create(ctx, &models.User{Name: "A", Email: "dup@x.com", Password: "secret123"}))
	err := env.users.Create(ctx, &models.User{Name: "B", Email: " DUP@X.COM", Password: "secret456"})
	require.ErrorIs(t, err, apperr.ErrDuplicateEmail)
}

func TestAuthenticate_FailuresIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "Ann", "ann@x.com")

	_, errWrongPassword := env.users.Authenticate(ctx, "ann@x.com", "nope12345")
	_, errUnknownEmail := env.users.Authenticate(ctx, "bob@x.com", "secret123")

	require.ErrorIs(t, errWrongPassword, apperr.ErrInvalidCredentials)
	require.ErrorIs(t, errUnknownEmail, apperr.ErrInvalidCredentials)
	assert.Equal(t, errWrongPassword.Error(), errUnknownEmail.Error())
}

func TestUpdateProfile_RehashesPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.register(t, "Ann", "ann@x.com")
	oldHash := u.PasswordHash

	err := env.users.UpdateProfile(ctx, u, map[string]json.RawMessage{
		"password": json.RawMessage(`"newsecret99"`),
		"age":      json.RawMessage(`31`),
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, u.PasswordHash)
	assert.Equal(t, 31, u.Age)

	_, err = env.users.Authenticate(ctx, "ann@x.com", "secret123")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, err = env.users.Authenticate(ctx, "ann@x.com", "newsecret99")
	require.NoError(t, err)
}

func TestUpdateProfile_KeepsHashWithoutNewPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.register(t, "Ann", "ann@x.com")
	oldHash := u.PasswordHash

	require.NoError(t, env.users.UpdateProfile(ctx, u, map[string]json.RawMessage{"name": json.RawMessage(`"Annie"`)}))

	reloaded, err := env.users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annie", reloaded.Name)
	assert.Equal(t, oldHash, reloaded.PasswordHash)
}

func TestUpdateProfile_RejectsUnknownFieldAtomically(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.register(t, "Ann", "ann@x.com")

	err := env.users.UpdateProfile(ctx, u, map[string]json.RawMessage{
		"name":   json.RawMessage(`"Mallory"`),
		"tokens": json.RawMessage(`[]`),
	})
	require.ErrorIs(t, err, apperr.ErrInvalidField)
	assert.Equal(t, "Ann", u.Name)

	reloaded, err := env.users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", reloaded.Name)
}

func TestUpdateProfile_BadValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.register(t, "Ann", "ann@x.com")
	env.register(t, "Bob", "bob@x.com")

	err := env.users.UpdateProfile(ctx, u, map[string]json.RawMessage{"age": json.RawMessage(`"old"`)})
	require.ErrorIs(t, err, apperr.ErrValidation)

	err = env.users.UpdateProfile(ctx, u, map[string]json.RawMessage{"password": json.RawMessage(`"password1"`)})
	require.ErrorIs(t, err, apperr.ErrValidation)

	err = env.users.UpdateProfile(ctx, u, map[string]json.RawMessage{"email": json.RawMessage(`"BOB@x.com"`)})
	require.ErrorIs(t, err, apperr.ErrDuplicateEmail)
	assert.Equal(t, "ann@x.com", u.Email)
}

func TestAvatar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.register(t, "Ann", "ann@x.com")

	_, err := env.users.GetAvatar(ctx, u.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, env.users.SetAvatar(ctx, u.ID, []byte{1, 2, 3}))
	data, err := env.users.GetAvatar(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	require.NoError(t, env.users.ClearAvatar(ctx, u.ID))
	_, err = env.users.GetAvatar(ctx, u.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = env.users.GetAvatar(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.ErrorIs(t, env.users.SetAvatar(ctx, "missing", []byte{1}), apperr.ErrNotFound)
}

func TestGetUserByID_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.GetUserByID(context.Background(), "nope")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
