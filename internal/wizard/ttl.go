package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/tententen/internal/shared"
	"github.com/ashureev/tententen/internal/store"
)

// DefaultTTLInterval is how often the TTL worker sweeps for idle sessions.
const DefaultTTLInterval = 5 * time.Minute

// CleanupCallback is called for every session removed by the TTL worker.
type CleanupCallback func(userID, sessionID string)

// deleteSessionWithRetry attempts to delete a session with exponential backoff
// to ride out transient write conflicts.
func deleteSessionWithRetry(ctx context.Context, repo store.Repository, key string) error {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := repo.DeleteSession(ctx, key)
		if err == nil {
			return nil
		}

		if shared.IsConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms, 200ms
			slog.Debug("TTL worker: write conflict during session delete, retrying",
				"session_key", key,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		// Context canceled during shutdown is not fatal for cleanup.
		if ctx.Err() != nil {
			slog.Debug("TTL worker: context canceled during session delete", "session_key", key, "error", err)
			return nil
		}

		return fmt.Errorf("failed to delete session %s after %d attempts: %w", key, i+1, err)
	}

	return nil
}

// StartTTLWorker runs a background goroutine that periodically removes
// sessions idle for longer than ttl. Deletion goes through c so it never
// races an action on the same session.
func StartTTLWorker(ctx context.Context, c *Controller, ttl, interval time.Duration, onCleanup CleanupCallback) {
	if interval <= 0 {
		interval = DefaultTTLInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("TTL worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				cleanupExpiredSessions(ctx, c, ttl, onCleanup)
			case <-ctx.Done():
				slog.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func cleanupExpiredSessions(ctx context.Context, c *Controller, ttl time.Duration, onCleanup CleanupCallback) int {
	expired, err := c.repo.GetExpiredSessions(ctx, ttl)
	if err != nil {
		slog.Error("TTL worker failed to get expired sessions", "error", err)
		return 0
	}
	if len(expired) == 0 {
		return 0
	}

	slog.Info("TTL worker found expired sessions", "count", len(expired))

	cleaned := 0
	for _, s := range expired {
		removed, err := c.Expire(ctx, s.UserID, s.SessionID, ttl)
		if err != nil {
			slog.Warn("TTL worker failed to delete session after retries",
				"error", err,
				"user_id", s.UserID,
				"session_id", s.SessionID)
			continue
		}
		if !removed {
			slog.Debug("TTL worker kept session touched since listing",
				"user_id", s.UserID,
				"session_id", s.SessionID)
			continue
		}
		if onCleanup != nil {
			onCleanup(s.UserID, s.SessionID)
		}
		cleaned++
	}

	slog.Info("TTL worker cleanup completed", "cleaned", cleaned)
	return cleaned
}
