package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const throttleKeyPrefix = "login:failures:"

// Throttle counts failed logins per username in Redis and blocks further
// attempts once the limit is hit inside the window. With no Redis client
// configured it is inert, and Redis errors fail open: an unreachable Redis
// must not lock everyone out.
type Throttle struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewThrottle(client *redis.Client, max int, window time.Duration) *Throttle {
	return &Throttle{client: client, max: max, window: window}
}

func (t *Throttle) Blocked(ctx context.Context, username string) bool {
	if t == nil || t.client == nil {
		return false
	}
	count, err := t.client.Get(ctx, throttleKeyPrefix+username).Int()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("login throttle check failed", slog.String("error", err.Error()))
		}
		return false
	}
	return count >= t.max
}

func (t *Throttle) RecordFailure(ctx context.Context, username string) {
	if t == nil || t.client == nil {
		return
	}
	key := throttleKeyPrefix + username
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		slog.Warn("login throttle record failed", slog.String("error", err.Error()))
		return
	}
	if count == 1 {
		t.client.Expire(ctx, key, t.window)
	}
}

func (t *Throttle) Reset(ctx context.Context, username string) {
	if t == nil || t.client == nil {
		return
	}
	t.client.Del(ctx, throttleKeyPrefix+username)
}
