package store

import (
	"context"
	"log/slog"
	"time"
)

// StartCleanupWorker runs a background goroutine that periodically deletes
// session records older than retention. A zero retention disables it.
func StartCleanupWorker(ctx context.Context, repo Repository, interval, retention time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 || interval <= 0 {
		logger.Info("Cleanup worker disabled", "interval", interval, "retention", retention)
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		logger.Info("Cleanup worker started", "interval", interval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				cleanupExpired(ctx, repo, retention, logger)
			case <-ctx.Done():
				logger.Info("Cleanup worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func cleanupExpired(ctx context.Context, repo Repository, retention time.Duration, logger *slog.Logger) int64 {
	deleted, err := repo.CleanupExpiredState(ctx, retention)
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("Cleanup worker: context canceled during cleanup", "error", err)
			return 0
		}
		logger.Error("Cleanup worker failed to delete expired session records", "error", err)
		return 0
	}
	if deleted > 0 {
		logger.Info("Cleanup worker deleted expired session records", "count", deleted)
	}
	return deleted
}
