package services

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/task-manager-be/internal/auth"
	"github.com/isdelr/task-manager-be/internal/database"
	"github.com/isdelr/task-manager-be/internal/models"
	"github.com/isdelr/task-manager-be/internal/notify"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (f *fakeNotifier) Send(ctx context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeNotifier) messages() []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Message(nil), f.sent...)
}

type testEnv struct {
	db       *sql.DB
	users    *UserService
	tokens   *TokenService
	tasks    *TaskService
	events   *EventService
	accounts *AccountService
	notifier *fakeNotifier
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	env := &testEnv{
		db:       db,
		users:    NewUserService(db, bcrypt.MinCost),
		tokens:   NewTokenService(db, auth.NewSigner([]byte("test-secret"), time.Hour)),
		tasks:    NewTaskService(db),
		events:   NewEventService(db),
		notifier: &fakeNotifier{},
	}
	env.accounts = NewAccountService(db, env.users, env.tokens, env.tasks, env.events, env.notifier,
		AccountOptions{NotifyTimeout: time.Second, AvatarSize: 32})
	t.Cleanup(env.accounts.Wait)
	return env
}

func (e *testEnv) register(t *testing.T, name, email string) (*models.User, string) {
	t.Helper()
	u, tok, err := e.accounts.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: "secret123"})
	require.NoError(t, err)
	return u, tok
}

var errBoom = errors.New("boom")
