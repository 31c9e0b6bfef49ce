package domain

import "time"

// SessionRecord is the persisted outcome of an ended counseling session.
type SessionRecord struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Profile   Profile   `json:"profile"`
	Summary   string    `json:"summary"`
	Reason    string    `json:"reason"`
	Turns     int       `json:"turns"`
	Messages  []Message `json:"messages"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}
