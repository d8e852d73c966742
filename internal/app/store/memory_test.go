package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RecentMessages_OrderAndLimit(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore(10 * time.Second)
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		_, err := s.AppendMessage(ctx, "lobby", "Ape42", "#ff0000", fmt.Sprintf("msg %d", i))
		req.NoError(err)
	}

	messages, err := s.RecentMessages(ctx, "lobby", 100)
	req.NoError(err)
	req.Len(messages, 100)

	// Ascending by creation time, and exactly the newest 100.
	req.Equal("msg 50", messages[0].Message)
	req.Equal("msg 149", messages[99].Message)
	for i := 1; i < len(messages); i++ {
		req.False(messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}
}

func TestMemoryStore_RecentMessages_EmptyRoom(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore(10 * time.Second)

	messages, err := s.RecentMessages(context.Background(), "ghost-town", 100)
	req.NoError(err)
	req.Empty(messages)
}

func TestMemoryStore_RoomsAreIsolated(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore(10 * time.Second)
	ctx := context.Background()

	_, err := s.AppendMessage(ctx, "lobby", "Ape42", "#ff0000", "gm")
	req.NoError(err)
	_, err = s.AppendMessage(ctx, "trading", "Ape42", "#ff0000", "wen moon")
	req.NoError(err)

	lobby, err := s.RecentMessages(ctx, "lobby", 100)
	req.NoError(err)
	req.Len(lobby, 1)
	req.Equal("gm", lobby[0].Message)

	trading, err := s.RecentMessages(ctx, "trading", 100)
	req.NoError(err)
	req.Len(trading, 1)
	req.Equal("wen moon", trading[0].Message)
}

func TestMemoryStore_TrimMessages_FIFO(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore(10 * time.Second)
	ctx := context.Background()

	for i := 0; i < 520; i++ {
		_, err := s.AppendMessage(ctx, "lobby", "Ape42", "#ff0000", fmt.Sprintf("msg %d", i))
		req.NoError(err)
	}

	req.NoError(s.TrimMessages(ctx, "lobby", 500))

	messages, err := s.RecentMessages(ctx, "lobby", 600)
	req.NoError(err)
	req.Len(messages, 500)

	// The oldest 20 were evicted; the retained entries are exactly the
	// 500 most recent pre-trim messages.
	req.Equal("msg 20", messages[0].Message)
	req.Equal("msg 519", messages[499].Message)
}

func TestMemoryStore_TrimMessages_UnderCapIsNoop(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore(10 * time.Second)
	ctx := context.Background()

	_, err := s.AppendMessage(ctx, "lobby", "Ape42", "#ff0000", "gm")
	req.NoError(err)

	req.NoError(s.TrimMessages(ctx, "lobby", 500))

	messages, err := s.RecentMessages(ctx, "lobby", 100)
	req.NoError(err)
	req.Len(messages, 1)
}

func TestMemoryStore_HeartbeatTyping_ReplacesNotAppends(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore(10 * time.Second)
	ctx := context.Background()

	first, err := s.HeartbeatTyping(ctx, "lobby", "Ape42", "#ff0000")
	req.NoError(err)

	second, err := s.HeartbeatTyping(ctx, "lobby", "Ape42", "#00ff00")
	req.NoError(err)
	req.Equal(first.ID, second.ID)
	req.False(second.UpdatedAt.Before(first.UpdatedAt))

	indicators, err := s.ListTyping(ctx, "lobby")
	req.NoError(err)
	req.Len(indicators, 1)
	req.Equal("#00ff00", indicators[0].UserColor)
}

func TestMemoryStore_ListTyping_ExcludesStale(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore(10 * time.Second)
	ctx := context.Background()

	current := time.Now()
	s.now = func() time.Time { return current }

	_, err := s.HeartbeatTyping(ctx, "lobby", "Ape42", "#ff0000")
	req.NoError(err)
	_, err = s.HeartbeatTyping(ctx, "lobby", "Degen", "#0000ff")
	req.NoError(err)

	// Ape42 stops typing; Degen keeps the heartbeat alive.
	current = current.Add(6 * time.Second)
	_, err = s.HeartbeatTyping(ctx, "lobby", "Degen", "#0000ff")
	req.NoError(err)

	current = current.Add(5 * time.Second)

	indicators, err := s.ListTyping(ctx, "lobby")
	req.NoError(err)
	req.Len(indicators, 1)
	req.Equal("Degen", indicators[0].Username)

	// The stale entry was purged, not just filtered.
	req.NotContains(s.typing["lobby"], "Ape42")
}

func TestMemoryStore_RemoveTyping_Idempotent(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore(10 * time.Second)
	ctx := context.Background()

	_, err := s.HeartbeatTyping(ctx, "lobby", "Ape42", "#ff0000")
	req.NoError(err)

	req.NoError(s.RemoveTyping(ctx, "lobby", "Ape42"))
	req.NoError(s.RemoveTyping(ctx, "lobby", "Ape42"))
	req.NoError(s.RemoveTyping(ctx, "nowhere", "Nobody"))

	indicators, err := s.ListTyping(ctx, "lobby")
	req.NoError(err)
	req.Empty(indicators)
}
