package store

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemory()
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.SaveSessionRecord(ctx, &domain.SessionRecord{SessionID: "old", UserID: "u1", EndedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.SaveSessionRecord(ctx, &domain.SessionRecord{SessionID: "new", UserID: "u1", EndedAt: now.Add(-time.Hour)}))

	assert.EqualValues(t, 1, cleanupExpired(ctx, repo, 24*time.Hour, slog.Default()))

	records, err := repo.ListSessionRecords(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].SessionID)
}

func TestStartCleanupWorkerStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	StartCleanupWorker(ctx, NewMemory(), time.Millisecond, time.Hour, nil)
	time.Sleep(5 * time.Millisecond)
	cancel()
}

func TestStartCleanupWorkerDisabled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	StartCleanupWorker(context.Background(), NewMemory(), time.Hour, 0, nil)
}
