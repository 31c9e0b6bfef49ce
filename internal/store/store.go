// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/Rahul-s27/Pace/internal/domain"
)

// Keys of the per-user client state.
const (
	KeyUserProfile        = "userProfile"
	KeyAppState           = "appState"
	KeySavedOpportunities = "savedOpportunities"
	KeySavedMentors       = "savedMentors"
)

// Repository defines the interface for persisting users, client state and
// session transcripts.
type Repository interface {
	// GetUser retrieves a user by ID. It returns nil, nil when none exists.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// Get reads one client state value.
	Get(ctx context.Context, userID, key string) (string, bool, error)

	// Set writes one client state value.
	Set(ctx context.Context, userID, key, value string) error

	// Remove deletes one client state value. Removing a missing key is not an error.
	Remove(ctx context.Context, userID, key string) error

	// SaveSessionRecord stores the outcome of an ended session.
	SaveSessionRecord(ctx context.Context, record *domain.SessionRecord) error

	// ListSessionRecords returns a user's ended sessions, most recent first.
	ListSessionRecords(ctx context.Context, userID string, limit int) ([]*domain.SessionRecord, error)

	// CleanupExpiredState removes session records that ended before now minus ttl.
	CleanupExpiredState(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
