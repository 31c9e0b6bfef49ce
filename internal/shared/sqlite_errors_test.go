package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsSQLiteConflictError(t *testing.T) {
	assert.False(t, IsSQLiteConflictError(nil))
	assert.False(t, IsSQLiteConflictError(errors.New("no such table")))
	assert.True(t, IsSQLiteConflictError(errors.New("exec: SQLITE_BUSY")))
	assert.True(t, IsSQLiteConflictError(errors.New("database is locked (5)")))
}

func TestRetryOnConflict(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := RetryOnConflict(ctx, "test", 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = RetryOnConflict(ctx, "test", 3, time.Millisecond, func() error {
		calls++
		return errors.New("constraint failed")
	})
	assert.EqualError(t, err, "constraint failed")
	assert.Equal(t, 1, calls)

	calls = 0
	err = RetryOnConflict(ctx, "test", 2, time.Millisecond, func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	})
	assert.True(t, IsSQLiteBusyError(err))
	assert.Equal(t, 2, calls)
}

func TestRetryOnConflictHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryOnConflict(ctx, "test", 5, time.Hour, func() error {
		return errors.New("SQLITE_BUSY")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
