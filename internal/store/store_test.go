package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) Repository {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "pace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func repositories(t *testing.T) map[string]Repository {
	return map[string]Repository{
		"sqlite": newSQLite(t),
		"memory": NewMemory(),
	}
}

func TestRepositoryUsers(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := repo.GetUser(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, got)

			created := time.Unix(1700000000, 0)
			require.NoError(t, repo.UpsertUser(ctx, &domain.User{
				UserID: "u1", Email: "a@example.com", LastSeenAt: created, CreatedAt: created, UpdatedAt: created,
			}))
			later := created.Add(time.Hour)
			require.NoError(t, repo.UpsertUser(ctx, &domain.User{
				UserID: "u1", Name: "Asha", Email: "a@example.com", LastSeenAt: later, CreatedAt: later, UpdatedAt: later,
			}))

			got, err = repo.GetUser(ctx, "u1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "Asha", got.Name)
			assert.True(t, got.CreatedAt.Equal(created))
			assert.True(t, got.LastSeenAt.Equal(later))
		})
	}
}

func TestRepositoryKeyValue(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := repo.Get(ctx, "u1", KeyAppState)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, repo.Set(ctx, "u1", KeyAppState, "welcome"))
			require.NoError(t, repo.Set(ctx, "u1", KeyAppState, "counselling"))
			v, ok, err := repo.Get(ctx, "u1", KeyAppState)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "counselling", v)

			_, ok, err = repo.Get(ctx, "u2", KeyAppState)
			require.NoError(t, err)
			assert.False(t, ok, "state is per user")

			require.NoError(t, repo.Remove(ctx, "u1", KeyAppState))
			require.NoError(t, repo.Remove(ctx, "u1", KeyAppState))
			_, ok, err = repo.Get(ctx, "u1", KeyAppState)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRepositorySessionRecords(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().Truncate(time.Millisecond)

			old := &domain.SessionRecord{
				SessionID: "s-old", UserID: "u1", Summary: "a", Reason: "clock_expired",
				StartedAt: now.Add(-3 * time.Hour), EndedAt: now.Add(-2 * time.Hour),
			}
			recent := &domain.SessionRecord{
				SessionID: "s-new", UserID: "u1", Summary: "b", Reason: "turn_limit", Turns: 8,
				Profile:   domain.Profile{Name: "Asha", Age: "17", EducationLevel: "high-school"},
				Messages:  []domain.Message{{ID: "welcome", Content: "hi", Sender: domain.SenderMentor, Timestamp: now}},
				StartedAt: now.Add(-time.Minute), EndedAt: now,
			}
			other := &domain.SessionRecord{SessionID: "s-other", UserID: "u2", EndedAt: now}

			for _, r := range []*domain.SessionRecord{old, recent, other} {
				require.NoError(t, repo.SaveSessionRecord(ctx, r))
			}

			records, err := repo.ListSessionRecords(ctx, "u1", 10)
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "s-new", records[0].SessionID)
			assert.Equal(t, "Asha", records[0].Profile.Name)
			assert.Equal(t, 8, records[0].Turns)
			require.Len(t, records[0].Messages, 1)
			assert.Equal(t, domain.SenderMentor, records[0].Messages[0].Sender)
			assert.True(t, records[0].EndedAt.Equal(now))

			records, err = repo.ListSessionRecords(ctx, "u1", 1)
			require.NoError(t, err)
			assert.Len(t, records, 1)

			n, err := repo.CleanupExpiredState(ctx, time.Hour)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			records, err = repo.ListSessionRecords(ctx, "u1", 10)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "s-new", records[0].SessionID)
		})
	}
}

func TestRepositoryPing(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, repo.Ping(context.Background()))
		})
	}
}
