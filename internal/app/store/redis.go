package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"retrochat/internal/pkg/logx"
	"retrochat/internal/pkg/randx"
)

// RedisStore persists chat state in Redis.
//
// Messages live in a per-room sorted set scored by unix-milli creation time,
// so recency queries and FIFO trimming are rank operations. Typing indicators
// live in a per-room hash keyed by username; the whole hash carries a TTL
// refreshed on every heartbeat, and reads additionally filter entries whose
// own updated_at is stale, since the hash TTL is coarser than per-entry age.
type RedisStore struct {
	client    *redis.Client
	typingTTL time.Duration

	now func() time.Time
}

// NewRedisStore wraps a connected Redis client.
func NewRedisStore(client *redis.Client, typingTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		typingTTL: typingTTL,
		now:       time.Now,
	}
}

func messagesKey(room string) string {
	return "chat:room:" + room + ":messages"
}

func typingKey(room string) string {
	return "chat:room:" + room + ":typing"
}

// AppendMessage serializes the message and adds it to the room's sorted set.
func (s *RedisStore) AppendMessage(ctx context.Context, room, username, color, text string) (Message, error) {
	msg := Message{
		ID:        randx.MessageID(),
		Room:      room,
		Username:  username,
		UserColor: color,
		Message:   text,
		CreatedAt: s.now().UTC(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return Message{}, fmt.Errorf("append message: encode: %w", err)
	}

	err = s.client.ZAdd(ctx, messagesKey(room), redis.Z{
		Score:  float64(msg.CreatedAt.UnixMilli()),
		Member: payload,
	}).Err()
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w (%v)", ErrUnavailable, err)
	}

	return msg, nil
}

// RecentMessages reads the top-limit members by descending score, then
// reverses for chronological order.
func (s *RedisStore) RecentMessages(ctx context.Context, room string, limit int) ([]Message, error) {
	members, err := s.client.ZRevRange(ctx, messagesKey(room), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w (%v)", ErrUnavailable, err)
	}

	messages := make([]Message, 0, len(members))
	for _, member := range members {
		var msg Message
		if err := json.Unmarshal([]byte(member), &msg); err != nil {
			logx.Warn("Skipping undecodable message member in sorted set", "room", room)
			continue
		}
		messages = append(messages, msg)
	}

	return lo.Reverse(messages), nil
}

// TrimMessages removes every member ranked below the maxRetain newest.
func (s *RedisStore) TrimMessages(ctx context.Context, room string, maxRetain int) error {
	err := s.client.ZRemRangeByRank(ctx, messagesKey(room), 0, int64(-(maxRetain + 1))).Err()
	if err != nil {
		return fmt.Errorf("trim messages: %w (%v)", ErrUnavailable, err)
	}
	return nil
}

// HeartbeatTyping stores the indicator under the user's hash field and
// refreshes the hash TTL.
func (s *RedisStore) HeartbeatTyping(ctx context.Context, room, username, color string) (TypingIndicator, error) {
	indicator := TypingIndicator{
		ID:        randx.TypingID(),
		Room:      room,
		Username:  username,
		UserColor: color,
		UpdatedAt: s.now().UTC(),
	}

	payload, err := json.Marshal(indicator)
	if err != nil {
		return TypingIndicator{}, fmt.Errorf("heartbeat typing: encode: %w", err)
	}

	key := typingKey(room)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, username, payload)
	pipe.Expire(ctx, key, s.typingTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return TypingIndicator{}, fmt.Errorf("heartbeat typing: %w (%v)", ErrUnavailable, err)
	}

	return indicator, nil
}

// ListTyping reads the room hash, filters entries past the staleness window,
// and lazily deletes the stale fields it found.
func (s *RedisStore) ListTyping(ctx context.Context, room string) ([]TypingIndicator, error) {
	entries, err := s.client.HGetAll(ctx, typingKey(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("list typing: %w (%v)", ErrUnavailable, err)
	}

	cutoff := s.now().UTC().Add(-s.typingTTL)

	indicators := make([]TypingIndicator, 0, len(entries))
	var stale []string

	for username, raw := range entries {
		var indicator TypingIndicator
		if err := json.Unmarshal([]byte(raw), &indicator); err != nil {
			stale = append(stale, username)
			continue
		}
		if indicator.UpdatedAt.Before(cutoff) {
			stale = append(stale, username)
			continue
		}
		indicators = append(indicators, indicator)
	}

	if len(stale) > 0 {
		if err := s.client.HDel(ctx, typingKey(room), stale...).Err(); err != nil {
			logx.Warn("Failed to purge stale typing fields", "room", room, "count", len(stale))
		}
	}

	return indicators, nil
}

// RemoveTyping deletes the user's hash field. Idempotent.
func (s *RedisStore) RemoveTyping(ctx context.Context, room, username string) error {
	if err := s.client.HDel(ctx, typingKey(room), username).Err(); err != nil {
		return fmt.Errorf("remove typing: %w (%v)", ErrUnavailable, err)
	}
	return nil
}

// Close releases the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
