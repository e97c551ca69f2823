package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/isdelr/task-manager-be/internal/apperr"
	"github.com/isdelr/task-manager-be/internal/auth"
	"github.com/isdelr/task-manager-be/internal/database"
	"github.com/isdelr/task-manager-be/internal/dbx"
	"github.com/isdelr/task-manager-be/internal/models"
)

// TokenServiceProvider defines the interface for bearer token services.
type TokenServiceProvider interface {
	Issue(ctx context.Context, user *models.User) (string, error)
	Verify(ctx context.Context, token string) (string, error)
	RevokeOne(ctx context.Context, user *models.User, token string) error
	RevokeAll(ctx context.Context, user *models.User) error
}

// TokenService issues bearer tokens and keeps each user's list of live
// tokens. A token is valid only while its row exists, whatever its signature
// says. Each issue or revoke touches a single row, so concurrent logins and
// logouts for the same user never lose each other's updates.
type TokenService struct {
	db     *sql.DB
	signer *auth.Signer
	now    func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(db *sql.DB, signer *auth.Signer) *TokenService {
	return &TokenService{db: db, signer: signer, now: time.Now}
}

// Issue signs a new token for user and appends it to the user's token list.
func (s *TokenService) Issue(ctx context.Context, user *models.User) (string, error) {
	token, err := s.signer.GenerateJWT(user.ID)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO user_tokens (user_id, token, created_at) VALUES (?, ?, ?)`,
		user.ID, token, database.ToMillis(s.now()))
	if err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}

	user.Tokens = append(user.Tokens, token)
	return token, nil
}

// Verify checks the signature, then that the user still exists and still
// lists this exact token. It returns the id of the token's user.
func (s *TokenService) Verify(ctx context.Context, token string) (string, error) {
	claims, err := s.signer.ValidateJWT(token)
	if err != nil {
		return "", err
	}

	var userExists, tokenLive bool
	err = s.db.QueryRowContext(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM users WHERE id = ?),
			EXISTS (SELECT 1 FROM user_tokens WHERE user_id = ? AND token = ?)`,
		claims.UserID, claims.UserID, token).Scan(&userExists, &tokenLive)
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	if !userExists {
		return "", apperr.ErrUserNotFound
	}
	if !tokenLive {
		return "", apperr.ErrTokenRevoked
	}
	return claims.UserID, nil
}

// RevokeOne removes exactly token from the user's list.
func (s *TokenService) RevokeOne(ctx context.Context, user *models.User, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = ? AND token = ?`, user.ID, token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	kept := make([]string, 0, len(user.Tokens))
	for _, t := range user.Tokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	user.Tokens = kept
	return nil
}

// RevokeAll empties the user's token list.
func (s *TokenService) RevokeAll(ctx context.Context, user *models.User) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = ?`, user.ID); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	user.Tokens = []string{}
	return nil
}

// listTokens returns a user's live tokens in issue order.
func listTokens(ctx context.Context, q dbx.DBTX, userID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT token FROM user_tokens WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
