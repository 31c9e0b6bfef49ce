package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Rahul-s27/Pace/internal/domain"
)

// MemoryStore is an in-process Repository used by tests and the CLI.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	state   map[string]map[string]string
	records map[string]domain.SessionRecord
	now     func() time.Time
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		state:   make(map[string]map[string]string),
		records: make(map[string]domain.SessionRecord),
		now:     time.Now,
	}
}

// GetUser retrieves a user by ID.
func (m *MemoryStore) GetUser(_ context.Context, userID string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// UpsertUser creates or updates a user, keeping the original creation time.
func (m *MemoryStore) UpsertUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := *user
	if existing, ok := m.users[user.UserID]; ok {
		u.CreatedAt = existing.CreatedAt
	}
	m.users[user.UserID] = u
	return nil
}

// Get reads one client state value.
func (m *MemoryStore) Get(_ context.Context, userID, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.state[userID][key]
	return v, ok, nil
}

// Set writes one client state value.
func (m *MemoryStore) Set(_ context.Context, userID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state[userID] == nil {
		m.state[userID] = make(map[string]string)
	}
	m.state[userID][key] = value
	return nil
}

// Remove deletes one client state value.
func (m *MemoryStore) Remove(_ context.Context, userID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state[userID], key)
	return nil
}

// SaveSessionRecord stores the outcome of an ended session.
func (m *MemoryStore) SaveSessionRecord(_ context.Context, record *domain.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := *record
	r.Messages = slices.Clone(record.Messages)
	m.records[r.SessionID] = r
	return nil
}

// ListSessionRecords returns a user's ended sessions, most recent first.
func (m *MemoryStore) ListSessionRecords(_ context.Context, userID string, limit int) ([]*domain.SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.SessionRecord
	for _, r := range m.records {
		if r.UserID != userID {
			continue
		}
		r.Messages = slices.Clone(r.Messages)
		out = append(out, &r)
	}
	slices.SortFunc(out, func(a, b *domain.SessionRecord) int { return b.EndedAt.Compare(a.EndedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CleanupExpiredState removes session records that ended before now minus ttl.
func (m *MemoryStore) CleanupExpiredState(_ context.Context, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	threshold := m.now().Add(-ttl)
	var n int64
	for id, r := range m.records {
		if r.EndedAt.Before(threshold) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
