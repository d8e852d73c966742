package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// brokenStore fails every operation, simulating an unreachable primary.
type brokenStore struct {
	appendCalls int
}

func (b *brokenStore) AppendMessage(context.Context, string, string, string, string) (Message, error) {
	b.appendCalls++
	return Message{}, fmt.Errorf("append: %w", ErrUnavailable)
}

func (b *brokenStore) RecentMessages(context.Context, string, int) ([]Message, error) {
	return nil, fmt.Errorf("recent: %w", ErrUnavailable)
}

func (b *brokenStore) TrimMessages(context.Context, string, int) error {
	return fmt.Errorf("trim: %w", ErrUnavailable)
}

func (b *brokenStore) HeartbeatTyping(context.Context, string, string, string) (TypingIndicator, error) {
	return TypingIndicator{}, fmt.Errorf("heartbeat: %w", ErrUnavailable)
}

func (b *brokenStore) ListTyping(context.Context, string) ([]TypingIndicator, error) {
	return nil, fmt.Errorf("list typing: %w", ErrUnavailable)
}

func (b *brokenStore) RemoveTyping(context.Context, string, string) error {
	return fmt.Errorf("remove typing: %w", ErrUnavailable)
}

func (b *brokenStore) Close() error { return nil }

func TestFallback_AppendLandsOnSecondary(t *testing.T) {
	req := require.New(t)
	primary := &brokenStore{}
	secondary := NewMemoryStore(10 * time.Second)
	chain := NewFallback(primary, secondary)
	ctx := context.Background()

	msg, err := chain.AppendMessage(ctx, "lobby", "Ape42", "#ff0000", "gm")
	req.NoError(err)
	req.NotEmpty(msg.ID)
	req.Equal(1, primary.appendCalls)

	// The write is visible through the chain (served by the secondary).
	messages, err := chain.RecentMessages(ctx, "lobby", 100)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("gm", messages[0].Message)
}

func TestFallback_ReadsDegradeToEmpty(t *testing.T) {
	req := require.New(t)
	chain := NewFallback(&brokenStore{}, &brokenStore{})
	ctx := context.Background()

	messages, err := chain.RecentMessages(ctx, "lobby", 100)
	req.NoError(err)
	req.NotNil(messages)
	req.Empty(messages)

	indicators, err := chain.ListTyping(ctx, "lobby")
	req.NoError(err)
	req.NotNil(indicators)
	req.Empty(indicators)
}

func TestFallback_WriteFailsWhenChainExhausted(t *testing.T) {
	req := require.New(t)
	chain := NewFallback(&brokenStore{}, &brokenStore{})

	_, err := chain.AppendMessage(context.Background(), "lobby", "Ape42", "#ff0000", "gm")
	req.ErrorIs(err, ErrUnavailable)

	_, err = chain.HeartbeatTyping(context.Background(), "lobby", "Ape42", "#ff0000")
	req.ErrorIs(err, ErrUnavailable)
}

func TestFallback_TypingFallsThrough(t *testing.T) {
	req := require.New(t)
	secondary := NewMemoryStore(10 * time.Second)
	chain := NewFallback(&brokenStore{}, secondary)
	ctx := context.Background()

	_, err := chain.HeartbeatTyping(ctx, "lobby", "Ape42", "#ff0000")
	req.NoError(err)

	indicators, err := chain.ListTyping(ctx, "lobby")
	req.NoError(err)
	req.Len(indicators, 1)

	// RemoveTyping hits every store in the chain and stays error-free even
	// though the primary keeps failing.
	req.NoError(chain.RemoveTyping(ctx, "lobby", "Ape42"))

	indicators, err = chain.ListTyping(ctx, "lobby")
	req.NoError(err)
	req.Empty(indicators)
}

func TestFallback_PrefersPrimaryWhenHealthy(t *testing.T) {
	req := require.New(t)
	primary := NewMemoryStore(10 * time.Second)
	secondary := NewMemoryStore(10 * time.Second)
	chain := NewFallback(primary, secondary)
	ctx := context.Background()

	_, err := chain.AppendMessage(ctx, "lobby", "Ape42", "#ff0000", "gm")
	req.NoError(err)

	primaryMessages, err := primary.RecentMessages(ctx, "lobby", 100)
	req.NoError(err)
	req.Len(primaryMessages, 1)

	secondaryMessages, err := secondary.RecentMessages(ctx, "lobby", 100)
	req.NoError(err)
	req.Empty(secondaryMessages)
}
