// Package jobs holds background maintenance tasks.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

type TokenPurger interface {
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// StartTokenSweep periodically purges expired refresh tokens. The goroutine
// exits when ctx is cancelled. Expired tokens are already rejected on use;
// the sweep only keeps the table from growing.
func StartTokenSweep(ctx context.Context, store TokenPurger, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				n, err := store.DeleteExpiredRefreshTokens(tickCtx, time.Now().UTC())
				cancel()
				if err != nil {
					slog.Error("token sweep failed", slog.String("error", err.Error()))
					continue
				}
				if n > 0 {
					slog.Info("token sweep purged expired refresh tokens", slog.Int64("count", n))
				}
			}
		}
	}()
}
