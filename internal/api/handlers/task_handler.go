package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/task-manager-be/internal/apperr"
	"github.com/isdelr/task-manager-be/internal/auth"
	"github.com/isdelr/task-manager-be/internal/services"
)

// TaskHandler handles HTTP requests for the caller's tasks.
type TaskHandler struct {
	service services.TaskServiceProvider
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// ownerID returns the authenticated caller's id.
func ownerID(r *http.Request) (string, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return "", false
	}
	return user.ID, true
}

// Create handles the request to create a task for the caller.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	fields, err := decodeFields(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	task, err := h.service.CreateTask(r.Context(), owner, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// GetAll lists the caller's tasks. Supports completed, sortBy=field:asc|desc,
// limit and skip.
func (h *TaskHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), owner, services.ParseTaskQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Get handles the request to get a single task by its ID.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	task, err := h.service.GetTask(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Update handles a partial update of description and/or completed.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	fields, err := decodeFields(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	task, err := h.service.UpdateTask(r.Context(), owner, chi.URLParam(r, "id"), fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete removes a task and returns it.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	task, err := h.service.DeleteTask(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
