// Package domain contains core domain types for the Pace application.
package domain

import (
	"time"
)

// User represents a caller known to the server, either verified by the
// identity provider or an anonymous device identity.
type User struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	Name       string    `json:"name,omitempty"`
	Picture    string    `json:"picture,omitempty"`
	Anonymous  bool      `json:"anonymous"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName returns the best available human-readable name.
func (u *User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	case len(u.UserID) > 8:
		return "user-" + u.UserID[len(u.UserID)-8:]
	default:
		return "user"
	}
}

// VerifiedUser is the identity returned by token verification.
type VerifiedUser struct {
	UID     string `json:"uid"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}
