package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/task-manager-be/internal/apperr"
	"github.com/isdelr/task-manager-be/internal/auth"
	"github.com/isdelr/task-manager-be/internal/models"
	"github.com/isdelr/task-manager-be/internal/services"
	"github.com/rs/zerolog/log"
)

// avatarName restricts accepted upload names at intake. The bytes are
// decoded afterwards, so a name match alone does not make a file an avatar.
var avatarName = regexp.MustCompile(`\.(jpg|jpeg|pdf)$`)

// multipartOverhead leaves room for boundaries and part headers on top of
// the file size limit.
const multipartOverhead = 64 << 10

// UserHandler handles HTTP requests for user accounts.
type UserHandler struct {
	accounts       services.AccountServiceProvider
	users          services.UserServiceProvider
	avatarMaxBytes int64
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accounts services.AccountServiceProvider, users services.UserServiceProvider, avatarMaxBytes int64) *UserHandler {
	return &UserHandler{accounts: accounts, users: users, avatarMaxBytes: avatarMaxBytes}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      *int   `json:"age"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  models.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, apperr.Invalid("body", "must be a JSON object"))
		return
	}

	user, token, err := h.accounts.Register(r.Context(), services.RegisterInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Age:      payload.Age,
	})
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed to register user")
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{User: user.Public(), Token: token})
}

// Login handles user authentication and token issuance.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, apperr.Invalid("body", "must be a JSON object"))
		return
	}

	user, token, err := h.accounts.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed authentication attempt")
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: user.Public(), Token: token})
}

// GetMe returns the caller's public profile.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// Logout revokes the token this request was made with.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	token, hasToken := auth.TokenFromContext(r.Context())
	if !ok || !hasToken {
		writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	if err := h.accounts.Logout(r.Context(), user, token); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// LogoutAll revokes every token of the caller.
func (h *UserHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	if err := h.accounts.LogoutAll(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// UpdateMe applies a partial profile update. Only name, email, password and
// age may be sent.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	fields, err := decodeFields(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.accounts.UpdateProfile(r.Context(), user, fields); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// DeleteMe permanently deletes the caller's account and tasks.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// UploadAvatar accepts a multipart upload in the "avatar" field.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.avatarMaxBytes+multipartOverhead)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, apperr.Invalid("avatar", "file too large"))
			return
		}
		writeError(w, r, apperr.Invalid("avatar", "is required"))
		return
	}
	defer file.Close()

	if header.Size > h.avatarMaxBytes {
		writeError(w, r, apperr.Invalid("avatar", "file too large"))
		return
	}
	if !avatarName.MatchString(header.Filename) {
		writeError(w, r, apperr.Invalid("avatar", "please upload an image"))
		return
	}

	raw, err := io.ReadAll(io.LimitReader(file, h.avatarMaxBytes+1))
	if err != nil {
		writeError(w, r, apperr.Invalid("avatar", "could not read upload"))
		return
	}
	if int64(len(raw)) > h.avatarMaxBytes {
		writeError(w, r, apperr.Invalid("avatar", "file too large"))
		return
	}

	if err := h.accounts.UploadAvatar(r.Context(), user, raw); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteAvatar clears the caller's avatar.
func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	if err := h.accounts.RemoveAvatar(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetAvatar serves any user's avatar as PNG. No authentication required.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	png, err := h.users.GetAvatar(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("Failed to write avatar")
	}
}
