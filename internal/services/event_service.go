package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/task-manager-be/internal/database"
	"github.com/isdelr/task-manager-be/internal/dbx"
	"github.com/isdelr/task-manager-be/internal/models"
)

// Account event types.
const (
	EventRegister  = "user.register"
	EventLogin     = "user.login"
	EventLogout    = "user.logout"
	EventLogoutAll = "user.logout_all"
	EventUpdate    = "user.update"
	EventAvatar    = "user.avatar"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, userID, eventType, message string) error
	GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error)
	PruneEvents(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventService keeps each user's account activity log.
type EventService struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db, now: time.Now}
}

// CreateEvent logs a new event for a user.
func (s *EventService) CreateEvent(ctx context.Context, userID, eventType, message string) error {
	event := models.Event{
		ID:      uuid.New().String(),
		UserID:  userID,
		Type:    eventType,
		Message: message,
	}

	_, err := s.db.ExecContext(ctx, "INSERT INTO events (id, user_id, type, message, created_at) VALUES (?, ?, ?, ?, ?)",
		event.ID, event.UserID, event.Type, event.Message, database.ToMillis(s.now()))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetRecentEvents retrieves a user's most recent events, newest first.
func (s *EventService) GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, message, created_at FROM events
		WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var createdAt int64
		if err := rows.Scan(&event.ID, &event.UserID, &event.Type, &event.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.CreatedAt = database.FromMillis(createdAt)
		events = append(events, event)
	}
	return events, rows.Err()
}

// deleteEventsForUser drops a user's activity log.
func (s *EventService) deleteEventsForUser(ctx context.Context, q dbx.DBTX, userID string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM events WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	return nil
}

// PruneEvents drops events older than cutoff for every user.
func (s *EventService) PruneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", database.ToMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
