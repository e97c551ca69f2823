package models

import "time"

// Event represents an entry in a user's account activity log.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Type      string    `json:"type"` // e.g., "user.login", "user.logout_all"
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
