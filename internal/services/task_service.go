package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/task-manager-be/internal/apperr"
	"github.com/isdelr/task-manager-be/internal/database"
	"github.com/isdelr/task-manager-be/internal/dbx"
	"github.com/isdelr/task-manager-be/internal/models"
)

// TaskServiceProvider defines the interface for task services. Every call is
// scoped to ownerID; a task of another owner behaves exactly like a missing one.
type TaskServiceProvider interface {
	CreateTask(ctx context.Context, ownerID string, fields map[string]json.RawMessage) (*models.Task, error)
	ListTasks(ctx context.Context, ownerID string, q TaskQuery) ([]models.Task, error)
	GetTask(ctx context.Context, ownerID, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, ownerID, id string, fields map[string]json.RawMessage) (*models.Task, error)
	DeleteTask(ctx context.Context, ownerID, id string) (*models.Task, error)
}

// TaskService provides business logic for task management.
type TaskService struct {
	db  *sql.DB
	now func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{db: db, now: time.Now}
}

const taskColumns = `id, owner_id, description, completed, created_at, updated_at`

// taskFields holds decoded task input; nil means "not supplied".
type taskFields struct {
	Description *string
	Completed   *bool
}

// decodeTaskFields decodes description and completed. With strict set any
// other key is an ErrInvalidField; otherwise other keys (owner included) are dropped.
func decodeTaskFields(fields map[string]json.RawMessage, strict bool) (taskFields, error) {
	var out taskFields
	for key, raw := range fields {
		switch key {
		case "description":
			var d string
			if err := json.Unmarshal(raw, &d); err != nil {
				return out, apperr.Invalid(key, "must be a string")
			}
			d = strings.TrimSpace(d)
			if d == "" {
				return out, apperr.Invalid(key, "is required")
			}
			out.Description = &d
		case "completed":
			var c bool
			if string(raw) == "null" {
				return out, apperr.Invalid(key, "must be a boolean")
			}
			if err := json.Unmarshal(raw, &c); err != nil {
				return out, apperr.Invalid(key, "must be a boolean")
			}
			out.Completed = &c
		default:
			if strict {
				return out, apperr.NotAllowed(key)
			}
		}
	}
	return out, nil
}

// CreateTask creates a task owned by ownerID. A supplied owner is ignored.
func (s *TaskService) CreateTask(ctx context.Context, ownerID string, fields map[string]json.RawMessage) (*models.Task, error) {
	in, err := decodeTaskFields(fields, false)
	if err != nil {
		return nil, err
	}
	if in.Description == nil {
		return nil, apperr.Invalid("description", "is required")
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	task := &models.Task{
		ID:          uuid.New().String(),
		Description: *in.Description,
		Owner:       ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Completed != nil {
		task.Completed = *in.Completed
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.Owner, task.Description, boolToInt(task.Completed),
		database.ToMillis(task.CreatedAt), database.ToMillis(task.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

// ListTasks returns the owner's tasks filtered, sorted and paginated by q.
func (s *TaskService) ListTasks(ctx context.Context, ownerID string, q TaskQuery) ([]models.Task, error) {
	var sb strings.Builder
	args := []any{ownerID}

	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = ?`)
	if q.Completed != nil {
		sb.WriteString(` AND completed = ?`)
		args = append(args, boolToInt(*q.Completed))
	}

	sb.WriteString(` ORDER BY `)
	if col, ok := sortColumns[q.SortBy]; ok {
		dir := "ASC"
		if q.SortDesc {
			dir = "DESC"
		}
		sb.WriteString(col + ` ` + dir + `, `)
	}
	sb.WriteString(`rowid ASC LIMIT ? OFFSET ?`)

	limit := -1
	if q.Limit > 0 {
		limit = q.Limit
	}
	args = append(args, limit, q.Skip)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// GetTask retrieves a single task of ownerID.
func (s *TaskService) GetTask(ctx context.Context, ownerID, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanTask(row)
}

// UpdateTask changes description and/or completed. Any other field rejects
// the whole update. The id+owner condition and the write are one statement.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, id string, fields map[string]json.RawMessage) (*models.Task, error) {
	in, err := decodeTaskFields(fields, true)
	if err != nil {
		return nil, err
	}
	if in.Description == nil && in.Completed == nil {
		return s.GetTask(ctx, ownerID, id)
	}

	var description, completed any
	if in.Description != nil {
		description = *in.Description
	}
	if in.Completed != nil {
		completed = boolToInt(*in.Completed)
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET description = COALESCE(?, description),
		    completed = COALESCE(?, completed),
		    updated_at = ?
		WHERE id = ? AND owner_id = ?
		RETURNING `+taskColumns,
		description, completed, database.ToMillis(s.now()), id, ownerID)
	return scanTask(row)
}

// DeleteTask removes a task of ownerID and returns it.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner_id = ? RETURNING `+taskColumns, id, ownerID)
	return scanTask(row)
}

// deleteTasksForOwner removes every task of ownerID. Zero rows is fine.
func (s *TaskService) deleteTasksForOwner(ctx context.Context, q dbx.DBTX, ownerID string) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete tasks: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// scanTask scans a single row into a Task.
func scanTask(scanner interface{ Scan(...any) error }) (*models.Task, error) {
	var task models.Task
	var createdAt, updatedAt int64
	err := scanner.Scan(&task.ID, &task.Owner, &task.Description, &task.Completed, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	task.CreatedAt = database.FromMillis(createdAt)
	task.UpdatedAt = database.FromMillis(updatedAt)
	return &task, nil
}
