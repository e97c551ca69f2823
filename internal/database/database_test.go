package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndMigrate(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(context.Background(), db))
	// running twice is a no-op
	require.NoError(t, Migrate(context.Background(), db))

	for _, table := range []string{"users", "user_tokens", "tasks", "events"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestNew_EmptyPath(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
}

func TestTasksRequireExistingOwner(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(context.Background(), db))

	_, err = db.Exec(`INSERT INTO tasks (id, owner_id, description, completed, created_at, updated_at)
		VALUES ('t1', 'ghost', 'x', 0, 0, 0)`)
	require.Error(t, err)
}

func TestMillisRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 15, 123456789, time.FixedZone("x", 3600))

	got := FromMillis(ToMillis(now))

	assert.True(t, got.Equal(now.Truncate(time.Millisecond)))
	assert.Equal(t, time.UTC, got.Location())
}
