/*
Package store contains the persistence layer for chat messages and typing indicators.

It defines the Store interface plus one implementation per supported backend
(in-process memory, Postgres, a PostgREST-style REST facade, and Redis), and a
Fallback wrapper that chains several backends for graceful degradation.
All backends share the same externally observable behavior: per-room bounded
message retention with FIFO eviction, and at-most-one typing indicator per
(room, username) with a staleness window.
*/
package store

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultRoom is the room used when a request does not name one.
	DefaultRoom = "lobby"

	// DefaultColor is the display color assigned when a client does not send one.
	DefaultColor = "#000000"
)

// ErrUnavailable signals that a backend is unreachable or not ready to serve.
// The fallback chain treats it (and any other error) as a trigger to try the
// next backend; read paths at the HTTP boundary never surface it to clients.
var ErrUnavailable = errors.New("store unavailable")

// Message is a chat message durably recorded in a room.
// Messages are immutable once appended and leave the store only through
// FIFO trimming or backend-level expiry.
type Message struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Username  string    `json:"username"`
	UserColor string    `json:"user_color"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// TypingIndicator is the ephemeral "user is typing" record for a (room, username)
// pair. A heartbeat replaces any prior entry for the same pair; entries older
// than the staleness window are never returned by reads.
type TypingIndicator struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Username  string    `json:"username"`
	UserColor string    `json:"user_color"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the backend-agnostic persistence contract for one chat deployment.
//
// AppendMessage and TrimMessages must be atomic at room granularity; the
// typing operations must be atomic at (room, username) granularity. No
// cross-room coordination is required of any implementation.
type Store interface {
	// AppendMessage durably records a message, assigning its ID and CreatedAt.
	AppendMessage(ctx context.Context, room, username, color, text string) (Message, error)

	// RecentMessages returns up to limit most recent messages for the room,
	// ascending by CreatedAt. A room with no messages yields an empty slice.
	RecentMessages(ctx context.Context, room string, limit int) ([]Message, error)

	// TrimMessages evicts the oldest messages for the room until at most
	// maxRetain remain. Eviction is strict FIFO.
	TrimMessages(ctx context.Context, room string, maxRetain int) error

	// HeartbeatTyping upserts the typing indicator for (room, username),
	// refreshing UpdatedAt and replacing the stored color.
	HeartbeatTyping(ctx context.Context, room, username, color string) (TypingIndicator, error)

	// ListTyping returns the non-stale typing indicators for the room.
	// Implementations may purge stale entries as a side effect of the read.
	ListTyping(ctx context.Context, room string) ([]TypingIndicator, error)

	// RemoveTyping deletes the indicator for (room, username).
	// Deleting an absent indicator is not an error.
	RemoveTyping(ctx context.Context, room, username string) error

	// Close releases any resources held by the backend.
	Close() error
}
