package store

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"

	"retrochat/internal/pkg/randx"
)

// MemoryStore keeps all chat state in process memory.
//
// It is an explicitly constructed, single-owner instance: created at process
// start, passed to whoever needs it, gone on restart. It serves both as a
// standalone backend for local development and as the secondary of the
// fallback chain behind a durable backend.
type MemoryStore struct {
	mu        sync.RWMutex
	messages  map[string][]Message
	typing    map[string]map[string]TypingIndicator
	typingTTL time.Duration

	// now is swappable in tests to exercise the staleness window.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store with the given typing
// staleness window.
func NewMemoryStore(typingTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		messages:  make(map[string][]Message),
		typing:    make(map[string]map[string]TypingIndicator),
		typingTTL: typingTTL,
		now:       time.Now,
	}
}

// AppendMessage records a message in the room's ordered slice.
func (s *MemoryStore) AppendMessage(_ context.Context, room, username, color, text string) (Message, error) {
	msg := Message{
		ID:        randx.MessageID(),
		Room:      room,
		Username:  username,
		UserColor: color,
		Message:   text,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.messages[room] = append(s.messages[room], msg)
	s.mu.Unlock()

	return msg, nil
}

// RecentMessages returns the tail of the room's slice, ascending by creation time.
func (s *MemoryStore) RecentMessages(_ context.Context, room string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[room]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	result := make([]Message, len(msgs))
	copy(result, msgs)
	return result, nil
}

// TrimMessages drops the oldest entries until at most maxRetain remain.
func (s *MemoryStore) TrimMessages(_ context.Context, room string, maxRetain int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[room]
	if len(msgs) > maxRetain {
		trimmed := make([]Message, maxRetain)
		copy(trimmed, msgs[len(msgs)-maxRetain:])
		s.messages[room] = trimmed
	}
	return nil
}

// HeartbeatTyping upserts the indicator for (room, username).
func (s *MemoryStore) HeartbeatTyping(_ context.Context, room, username, color string) (TypingIndicator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomTyping, ok := s.typing[room]
	if !ok {
		roomTyping = make(map[string]TypingIndicator)
		s.typing[room] = roomTyping
	}

	indicator, ok := roomTyping[username]
	if !ok {
		indicator = TypingIndicator{
			ID:       randx.TypingID(),
			Room:     room,
			Username: username,
		}
	}

	indicator.UserColor = color
	indicator.UpdatedAt = s.now().UTC()
	roomTyping[username] = indicator

	return indicator, nil
}

// ListTyping sweeps stale entries for the room, then returns the survivors.
func (s *MemoryStore) ListTyping(_ context.Context, room string) ([]TypingIndicator, error) {
	cutoff := s.now().UTC().Add(-s.typingTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	roomTyping := s.typing[room]
	for username, indicator := range roomTyping {
		if indicator.UpdatedAt.Before(cutoff) {
			delete(roomTyping, username)
		}
	}

	return lo.Values(roomTyping), nil
}

// RemoveTyping deletes the indicator for (room, username). Idempotent.
func (s *MemoryStore) RemoveTyping(_ context.Context, room, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if roomTyping, ok := s.typing[room]; ok {
		delete(roomTyping, username)
	}
	return nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() error {
	return nil
}
