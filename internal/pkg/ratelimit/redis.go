package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps the fixed-window state in Redis: a SET NX PX per
// (room, username) key claims the window atomically, and the key's remaining
// TTL is the wait time reported to rejected posters.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
}

// NewRedisLimiter wraps a connected Redis client.
func NewRedisLimiter(client *redis.Client, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		window: window,
	}
}

func rateKey(room, username string) string {
	return "chat:ratelimit:" + room + ":" + username
}

// Allow claims the window with SET NX; on rejection PTTL supplies retryAfter.
func (l *RedisLimiter) Allow(ctx context.Context, room, username string) (bool, time.Duration, error) {
	key := rateKey(room, username)

	claimed, err := l.client.SetNX(ctx, key, 1, l.window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit check: %w", err)
	}
	if claimed {
		return true, 0, nil
	}

	remaining, err := l.client.PTTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit remaining wait: %w", err)
	}
	if remaining < 0 {
		// Key expired between SETNX and PTTL; next attempt will be accepted.
		remaining = 0
	}

	return false, remaining, nil
}
