package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/task-manager-be/internal/apperr"
	"github.com/isdelr/task-manager-be/internal/dbx"
	"github.com/isdelr/task-manager-be/internal/imaging"
	"github.com/isdelr/task-manager-be/internal/models"
	"github.com/isdelr/task-manager-be/internal/notify"
	"github.com/rs/zerolog/log"
)

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Age      *int
}

// AccountServiceProvider defines the interface for account lifecycle services.
type AccountServiceProvider interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Logout(ctx context.Context, user *models.User, token string) error
	LogoutAll(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User, fields map[string]json.RawMessage) error
	UploadAvatar(ctx context.Context, user *models.User, raw []byte) error
	RemoveAvatar(ctx context.Context, user *models.User) error
	DeleteAccount(ctx context.Context, user *models.User) error
}

// AccountService coordinates the user lifecycle across the credential
// store, the token list, the task store and outbound mail.
type AccountService struct {
	db            *sql.DB
	users         *UserService
	tokens        *TokenService
	tasks         *TaskService
	events        *EventService
	notifier      notify.Notifier
	notifyTimeout time.Duration
	avatarSize    int

	wg sync.WaitGroup
}

// AccountOptions tunes the side effects of AccountService.
type AccountOptions struct {
	NotifyTimeout time.Duration
	AvatarSize    int
}

// NewAccountService creates a new AccountService.
func NewAccountService(db *sql.DB, users *UserService, tokens *TokenService, tasks *TaskService, events *EventService, notifier notify.Notifier, opts AccountOptions) *AccountService {
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	if opts.AvatarSize <= 0 {
		opts.AvatarSize = 250
	}
	return &AccountService{
		db:            db,
		users:         users,
		tokens:        tokens,
		tasks:         tasks,
		events:        events,
		notifier:      notifier,
		notifyTimeout: opts.NotifyTimeout,
		avatarSize:    opts.AvatarSize,
	}
}

// Register creates the user, sends the welcome mail and logs the user in.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	user := &models.User{Name: in.Name, Email: in.Email, Password: in.Password}
	if in.Age != nil {
		user.Age = *in.Age
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	s.notifyAsync(notify.Welcome(user.Email, user.Name))

	token, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, "", err
	}
	s.record(ctx, user.ID, EventRegister, "Account created.")
	return user, token, nil
}

// Login checks credentials and issues a new token alongside existing ones.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, "", err
	}
	s.record(ctx, user.ID, EventLogin, fmt.Sprintf("New session started (%d active).", len(user.Tokens)))
	return user, token, nil
}

// Logout revokes only the token the request was made with.
func (s *AccountService) Logout(ctx context.Context, user *models.User, token string) error {
	if err := s.tokens.RevokeOne(ctx, user, token); err != nil {
		return err
	}
	s.record(ctx, user.ID, EventLogout, "Session ended.")
	return nil
}

// LogoutAll revokes every token of the user.
func (s *AccountService) LogoutAll(ctx context.Context, user *models.User) error {
	if err := s.tokens.RevokeAll(ctx, user); err != nil {
		return err
	}
	s.record(ctx, user.ID, EventLogoutAll, "All sessions ended.")
	return nil
}

// UpdateProfile applies profile changes through the credential store.
func (s *AccountService) UpdateProfile(ctx context.Context, user *models.User, fields map[string]json.RawMessage) error {
	if err := s.users.UpdateProfile(ctx, user, fields); err != nil {
		return err
	}
	if _, ok := fields["password"]; ok {
		s.record(ctx, user.ID, EventUpdate, "Password changed.")
	} else {
		s.record(ctx, user.ID, EventUpdate, "Profile updated.")
	}
	return nil
}

// UploadAvatar normalises raw image bytes to a square PNG and stores it.
func (s *AccountService) UploadAvatar(ctx context.Context, user *models.User, raw []byte) error {
	png, err := imaging.Normalize(raw, s.avatarSize)
	if err != nil {
		return apperr.Invalid("avatar", "must be a readable image")
	}
	if err := s.users.SetAvatar(ctx, user.ID, png); err != nil {
		return err
	}
	user.Avatar = png
	s.record(ctx, user.ID, EventAvatar, "Avatar uploaded.")
	return nil
}

// RemoveAvatar clears the avatar.
func (s *AccountService) RemoveAvatar(ctx context.Context, user *models.User) error {
	if err := s.users.ClearAvatar(ctx, user.ID); err != nil {
		return err
	}
	user.Avatar = nil
	s.record(ctx, user.ID, EventAvatar, "Avatar removed.")
	return nil
}

// DeleteAccount removes the user's tasks and then the user, in one
// transaction. If any step fails nothing is removed and the error is
// returned. Running it again for an already deleted user succeeds.
func (s *AccountService) DeleteAccount(ctx context.Context, user *models.User) error {
	var removed int64
	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.tasks.deleteTasksForOwner(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		removed = n
		if err := s.events.deleteEventsForUser(ctx, tx, user.ID); err != nil {
			return err
		}
		return s.users.deleteUser(ctx, tx, user.ID)
	})
	if err != nil {
		return fmt.Errorf("delete account %s: %w", user.ID, err)
	}

	user.Tokens = []string{}
	log.Info().Str("user_id", user.ID).Int64("tasks_removed", removed).Msg("Account deleted")
	s.notifyAsync(notify.Goodbye(user.Email, user.Name))
	return nil
}

// Wait blocks until in-flight notifications have finished.
func (s *AccountService) Wait() {
	s.wg.Wait()
}

// notifyAsync sends msg on its own goroutine with its own deadline. The
// outcome is only logged.
func (s *AccountService) notifyAsync(msg notify.Message) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				log.Error().Interface("panic", p).Str("to", msg.ToEmail).Msg("Notifier panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.Send(ctx, msg); err != nil {
			log.Warn().Err(err).Str("to", msg.ToEmail).Str("subject", msg.Subject).Msg("Failed to send notification")
		}
	}()
}

// record writes an activity event; a failure is logged, not returned.
func (s *AccountService) record(ctx context.Context, userID, eventType, message string) {
	if err := s.events.CreateEvent(ctx, userID, eventType, message); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("type", eventType).Msg("Failed to record account event")
	}
}
