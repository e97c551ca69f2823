package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/isdelr/task-manager-be/internal/apperr"
	"github.com/isdelr/task-manager-be/internal/database"
	"github.com/isdelr/task-manager-be/internal/dbx"
	"github.com/isdelr/task-manager-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 7
	maxPasswordBytes  = 72 // bcrypt input limit
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User, fields map[string]json.RawMessage) error
	SetAvatar(ctx context.Context, userID string, png []byte) error
	ClearAvatar(ctx context.Context, userID string) error
	GetAvatar(ctx context.Context, userID string) ([]byte, error)
}

// UserService is the credential store: it owns user records, their
// validation rules and password hashing.
type UserService struct {
	db        *sql.DB
	cost      int
	validate  *validator.Validate
	dummyHash []byte
	now       func() time.Time
}

// NewUserService creates a new UserService hashing with the given bcrypt cost.
func NewUserService(db *sql.DB, bcryptCost int) *UserService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// compared against when the email is unknown so both login failures cost the same
	dummy, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)

	return &UserService{
		db:        db,
		cost:      bcryptCost,
		validate:  v,
		dummyHash: dummy,
		now:       time.Now,
	}
}

// Create validates and inserts a new user, hashing its pending password.
func (s *UserService) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if strings.TrimSpace(user.Password) == "" {
		return apperr.Invalid("password", "is required")
	}
	if err := s.prepare(user); err != nil {
		return err
	}

	now := s.now()
	user.CreatedAt = now.UTC().Truncate(time.Millisecond)
	user.UpdatedAt = user.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, age, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Age,
		database.ToMillis(user.CreatedAt), database.ToMillis(user.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	if user.Tokens == nil {
		user.Tokens = []string{}
	}
	return nil
}

// Save persists name, email, age and, when a new plaintext is pending,
// a fresh password hash.
func (s *UserService) Save(ctx context.Context, user *models.User) error {
	if err := s.prepare(user); err != nil {
		return err
	}
	updatedAt := s.now().UTC().Truncate(time.Millisecond)

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = ?, email = ?, password_hash = ?, age = ?, updated_at = ?
		WHERE id = ?`,
		user.Name, user.Email, user.PasswordHash, user.Age, database.ToMillis(updatedAt), user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}
	user.UpdatedAt = updatedAt
	return nil
}

// prepare runs the fixed pre-save steps: normalise, validate, hash.
func (s *UserService) prepare(user *models.User) error {
	user.Name = strings.TrimSpace(user.Name)
	user.Email = normalizeEmail(user.Email)

	if err := s.validate.Struct(user); err != nil {
		return validationError(err)
	}

	if user.Password != "" {
		plain := strings.TrimSpace(user.Password)
		if err := checkPasswordPolicy(plain); err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
		user.Password = ""
	}
	if user.PasswordHash == "" {
		return apperr.Invalid("password", "is required")
	}
	return nil
}

// GetUserByID retrieves a single user by their ID, including live tokens.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, age, created_at, updated_at
		FROM users WHERE id = ?`, id)
	return s.loadUser(ctx, row)
}

// GetUserByEmail retrieves a single user by their email (case-insensitive).
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, age, created_at, updated_at
		FROM users WHERE email = ?`, normalizeEmail(email))
	return s.loadUser(ctx, row)
}

func (s *UserService) loadUser(ctx context.Context, row *sql.Row) (*models.User, error) {
	var user models.User
	var createdAt, updatedAt int64
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Age, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	user.CreatedAt = database.FromMillis(createdAt)
	user.UpdatedAt = database.FromMillis(updatedAt)

	user.Tokens, err = listTokens(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate verifies a user's credentials. Unknown emails and wrong
// passwords both yield apperr.ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(strings.TrimSpace(password))); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return user, nil
}

var profileFields = map[string]bool{"name": true, "email": true, "password": true, "age": true}

// UpdateProfile applies an allow-listed set of fields and saves the user.
// Any unknown field rejects the whole update.
func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, fields map[string]json.RawMessage) error {
	for key := range fields {
		if !profileFields[key] {
			return apperr.NotAllowed(key)
		}
	}

	updated := *user
	for key, raw := range fields {
		var err error
		switch key {
		case "name":
			err = json.Unmarshal(raw, &updated.Name)
		case "email":
			err = json.Unmarshal(raw, &updated.Email)
		case "password":
			err = json.Unmarshal(raw, &updated.Password)
			if err == nil && strings.TrimSpace(updated.Password) == "" {
				return apperr.Invalid("password", "is required")
			}
		case "age":
			err = json.Unmarshal(raw, &updated.Age)
		}
		if err != nil {
			return apperr.Invalid(key, "has the wrong type")
		}
	}

	if err := s.Save(ctx, &updated); err != nil {
		return err
	}
	*user = updated
	return nil
}

// SetAvatar stores already-normalised avatar bytes.
func (s *UserService) SetAvatar(ctx context.Context, userID string, png []byte) error {
	return s.writeAvatar(ctx, userID, png)
}

// ClearAvatar removes the avatar.
func (s *UserService) ClearAvatar(ctx context.Context, userID string) error {
	return s.writeAvatar(ctx, userID, nil)
}

func (s *UserService) writeAvatar(ctx context.Context, userID string, data []byte) error {
	var value any
	if data != nil {
		value = data
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET avatar = ?, updated_at = ? WHERE id = ?`,
		value, database.ToMillis(s.now()), userID)
	if err != nil {
		return fmt.Errorf("write avatar: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// GetAvatar returns the avatar bytes; apperr.ErrNotFound when the user or
// the avatar is absent.
func (s *UserService) GetAvatar(ctx context.Context, userID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT avatar FROM users WHERE id = ?`, userID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	if len(data) == 0 {
		return nil, apperr.ErrNotFound
	}
	return data, nil
}

// deleteUser removes the user row; its tokens go with it. Deleting an absent
// user is not an error.
func (s *UserService) deleteUser(ctx context.Context, q dbx.DBTX, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func checkPasswordPolicy(plain string) error {
	if len(plain) < minPasswordLength {
		return apperr.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if len(plain) > maxPasswordBytes {
		return apperr.Invalid("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	if strings.Contains(strings.ToLower(plain), "password") {
		return apperr.Invalid("password", `cannot contain "password"`)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Invalid("", err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Invalid(fe.Field(), "is required")
	case "email":
		return apperr.Invalid(fe.Field(), "is invalid")
	case "gte":
		return apperr.Invalid(fe.Field(), "must be a positive number")
	default:
		return apperr.Invalid(fe.Field(), "failed "+fe.Tag())
	}
}
