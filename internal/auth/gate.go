package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/isdelr/task-manager-be/internal/apperr"
	"github.com/isdelr/task-manager-be/internal/models"
	"github.com/rs/zerolog/log"
)

// TokenVerifier resolves a bearer token to the id of the user it belongs to.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// UserFinder loads the live user record.
type UserFinder interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type contextKey string

const (
	userKey  = contextKey("user")
	tokenKey = contextKey("token")
)

// Gate turns an Authorization header into an authenticated user.
type Gate struct {
	tokens TokenVerifier
	users  UserFinder
}

// NewGate creates a Gate.
func NewGate(tokens TokenVerifier, users UserFinder) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// Authenticate resolves the user and the exact token presented. Any failure
// is reported as apperr.ErrUnauthorized so callers cannot tell a bad
// signature from a revoked token or a deleted user.
func (g *Gate) Authenticate(ctx context.Context, header string) (*models.User, string, error) {
	token := bearerToken(header)
	if token == "" {
		return nil, "", apperr.ErrUnauthorized
	}

	userID, err := g.tokens.Verify(ctx, token)
	if err != nil {
		log.Debug().Err(err).Msg("Rejected bearer token")
		return nil, "", apperr.ErrUnauthorized
	}

	user, err := g.users.GetUserByID(ctx, userID)
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Token owner could not be loaded")
		return nil, "", apperr.ErrUnauthorized
	}
	if !user.HasToken(token) {
		// revoked between Verify and the user load
		return nil, "", apperr.ErrUnauthorized
	}
	return user, token, nil
}

// Middleware creates a middleware for protecting routes.
func (g *Gate) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, token, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Please authenticate."}`))
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user placed by Middleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}

// TokenFromContext returns the token the request authenticated with.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey).(string)
	return t, ok && t != ""
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
