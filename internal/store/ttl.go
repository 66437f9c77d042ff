package store

import (
	"context"
	"log/slog"
	"time"
)

// CleanupCallback is called for every session removed by the TTL worker.
type CleanupCallback func(sessionID string)

// StartTTLWorker runs a background goroutine that periodically removes
// sessions idle for longer than ttl.
func StartTTLWorker(ctx context.Context, repo Repository, ttl, interval time.Duration, onCleanup CleanupCallback) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("TTL worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				SweepIdle(ctx, repo, ttl, onCleanup)
			case <-ctx.Done():
				slog.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// SweepIdle performs one cleanup pass and returns the number of sessions removed.
func SweepIdle(ctx context.Context, repo Repository, ttl time.Duration, onCleanup CleanupCallback) int {
	ids, err := repo.DeleteIdle(ctx, ttl)
	if err != nil {
		slog.Error("TTL worker failed to delete idle sessions", "error", err)
		return 0
	}
	if len(ids) == 0 {
		return 0
	}

	for _, id := range ids {
		if onCleanup != nil {
			onCleanup(id)
		}
	}
	slog.Info("TTL worker cleanup completed", "cleaned", len(ids))
	return len(ids)
}
