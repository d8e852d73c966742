package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLimiter(window time.Duration) (*MemoryLimiter, *time.Time) {
	current := time.Now()
	l := &MemoryLimiter{
		last:   make(map[string]time.Time),
		window: window,
		now:    func() time.Time { return current },
	}
	return l, &current
}

func TestMemoryLimiter_OnePostPerWindow(t *testing.T) {
	req := require.New(t)
	l, current := newTestLimiter(10 * time.Second)
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "lobby", "Ape42")
	req.NoError(err)
	req.True(ok)

	// One second later the same pair is still inside the window.
	*current = current.Add(1 * time.Second)
	ok, retryAfter, err := l.Allow(ctx, "lobby", "Ape42")
	req.NoError(err)
	req.False(ok)
	req.Equal(9*time.Second, retryAfter)

	// A rejected attempt must not restart the window.
	*current = current.Add(9 * time.Second)
	ok, _, err = l.Allow(ctx, "lobby", "Ape42")
	req.NoError(err)
	req.True(ok)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	req := require.New(t)
	l, _ := newTestLimiter(10 * time.Second)
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "lobby", "Ape42")
	req.NoError(err)
	req.True(ok)

	// Same user in another room, and another user in the same room.
	ok, _, err = l.Allow(ctx, "trading", "Ape42")
	req.NoError(err)
	req.True(ok)

	ok, _, err = l.Allow(ctx, "lobby", "Degen")
	req.NoError(err)
	req.True(ok)

	ok, _, err = l.Allow(ctx, "lobby", "Ape42")
	req.NoError(err)
	req.False(ok)
}

func TestMemoryLimiter_WindowBoundaryIsInclusive(t *testing.T) {
	req := require.New(t)
	l, current := newTestLimiter(10 * time.Second)
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "lobby", "Ape42")
	req.NoError(err)
	req.True(ok)

	// Exactly W elapsed: the next post is accepted.
	*current = current.Add(10 * time.Second)
	ok, _, err = l.Allow(ctx, "lobby", "Ape42")
	req.NoError(err)
	req.True(ok)
}
