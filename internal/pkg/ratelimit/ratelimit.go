/*
Package ratelimit enforces the posting policy: one accepted message per
(room, username) pair per fixed window. No burst allowance, no token bucket.

The limiter state lives wherever the chat store lives, so a durable backend
keeps throttling across process restarts: a process-local map for the memory
backend, a rate_limits table for Postgres, a keyspace entry for Redis.
*/
package ratelimit

import (
	"context"
	"sync"
	"time"

	"retrochat/internal/pkg/logx"
)

// Limiter decides whether a post from (room, username) is accepted now.
//
// When ok is false, retryAfter is the remaining wait before the next post
// would be accepted. A non-nil error means the limiter's own backing store
// failed; callers are expected to fail open in that case.
type Limiter interface {
	Allow(ctx context.Context, room, username string) (ok bool, retryAfter time.Duration, err error)
}

// MemoryLimiter is the process-local fixed-window limiter.
type MemoryLimiter struct {
	mu     sync.Mutex
	last   map[string]time.Time
	window time.Duration

	// now is swappable in tests to step through the window.
	now func() time.Time
}

// NewMemoryLimiter creates a limiter with the given window and starts a
// background goroutine that periodically drops expired entries, so idle
// (room, username) pairs do not accumulate forever.
func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		last:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}

	go l.cleanUpStale()

	return l
}

func limiterKey(room, username string) string {
	return room + "\x00" + username
}

// Allow accepts the post iff no post for the same pair was accepted within
// the window, and records the acceptance time.
func (l *MemoryLimiter) Allow(_ context.Context, room, username string) (bool, time.Duration, error) {
	key := limiterKey(room, username)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if lastAccepted, ok := l.last[key]; ok {
		elapsed := now.Sub(lastAccepted)
		if elapsed < l.window {
			return false, l.window - elapsed, nil
		}
	}

	l.last[key] = now
	return true, 0, nil
}

// cleanUpStale periodically removes entries whose window has long expired.
func (l *MemoryLimiter) cleanUpStale() {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := l.now().Add(-l.window)

		l.mu.Lock()
		count := 0
		for key, lastAccepted := range l.last {
			if lastAccepted.Before(cutoff) {
				delete(l.last, key)
				count++
			}
		}
		remaining := len(l.last)
		l.mu.Unlock()

		logx.Info("Rate limiter cleanup finished.", "removed", count, "remaining", remaining)
	}
}
