package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"retrochat/internal/app/db"
	"retrochat/internal/pkg/randx"
)

// PostgresStore persists chat state in PostgreSQL via a pgx connection pool.
//
// Message ordering relies on the server-assigned created_at column; typing
// indicators use an upsert on the (room, username) unique constraint, with
// stale rows purged lazily on each read.
type PostgresStore struct {
	pool      *pgxpool.Pool
	typingTTL time.Duration
}

// NewPostgresStore wraps an initialized connection pool. The schema is
// expected to be in place (see internal/app/db migrations).
func NewPostgresStore(pool *pgxpool.Pool, typingTTL time.Duration) *PostgresStore {
	return &PostgresStore{
		pool:      pool,
		typingTTL: typingTTL,
	}
}

// wrapErr normalizes backend failures so the fallback chain can react to them.
// A missing table means the schema is not provisioned yet, which is a
// fallback trigger, not a hard failure.
func wrapErr(op string, err error) error {
	if db.IsUndefinedTable(err) {
		return fmt.Errorf("%s: schema not ready: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w (%v)", op, ErrUnavailable, err)
}

// AppendMessage inserts a message and returns it with the server-assigned timestamp.
func (s *PostgresStore) AppendMessage(ctx context.Context, room, username, color, text string) (Message, error) {
	msg := Message{
		ID:        randx.MessageID(),
		Room:      room,
		Username:  username,
		UserColor: color,
		Message:   text,
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (id, room, username, user_color, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, msg.ID, msg.Room, msg.Username, msg.UserColor, msg.Message).Scan(&msg.CreatedAt)
	if err != nil {
		return Message{}, wrapErr("append message", err)
	}

	return msg, nil
}

// RecentMessages fetches the newest rows for the room and returns them in
// chronological order.
func (s *PostgresStore) RecentMessages(ctx context.Context, room string, limit int) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room, username, user_color, message, created_at
		FROM messages
		WHERE room = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, room, limit)
	if err != nil {
		return nil, wrapErr("recent messages", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Message, error) {
		var m Message
		err := row.Scan(&m.ID, &m.Room, &m.Username, &m.UserColor, &m.Message, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, wrapErr("recent messages", err)
	}

	return lo.Reverse(messages), nil
}

// TrimMessages deletes every row for the room that falls outside the
// maxRetain newest.
func (s *PostgresStore) TrimMessages(ctx context.Context, room string, maxRetain int) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM messages
		WHERE room = $1
		  AND id NOT IN (
			SELECT id FROM messages
			WHERE room = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		  )
	`, room, maxRetain)
	if err != nil {
		return wrapErr("trim messages", err)
	}
	return nil
}

// HeartbeatTyping upserts the indicator row for (room, username).
func (s *PostgresStore) HeartbeatTyping(ctx context.Context, room, username, color string) (TypingIndicator, error) {
	indicator := TypingIndicator{
		Room:      room,
		Username:  username,
		UserColor: color,
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO typing_indicators (id, room, username, user_color, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (room, username)
		DO UPDATE SET user_color = EXCLUDED.user_color, updated_at = now()
		RETURNING id, updated_at
	`, randx.TypingID(), room, username, color).Scan(&indicator.ID, &indicator.UpdatedAt)
	if err != nil {
		return TypingIndicator{}, wrapErr("heartbeat typing", err)
	}

	return indicator, nil
}

// ListTyping purges stale rows for the room, then returns the survivors.
func (s *PostgresStore) ListTyping(ctx context.Context, room string) ([]TypingIndicator, error) {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM typing_indicators
		WHERE room = $1 AND updated_at < now() - make_interval(secs => $2)
	`, room, s.typingTTL.Seconds())
	if err != nil {
		return nil, wrapErr("sweep typing", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, room, username, user_color, updated_at
		FROM typing_indicators
		WHERE room = $1
	`, room)
	if err != nil {
		return nil, wrapErr("list typing", err)
	}

	indicators, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (TypingIndicator, error) {
		var t TypingIndicator
		err := row.Scan(&t.ID, &t.Room, &t.Username, &t.UserColor, &t.UpdatedAt)
		return t, err
	})
	if err != nil {
		return nil, wrapErr("list typing", err)
	}

	return indicators, nil
}

// RemoveTyping deletes the indicator row for (room, username). Idempotent.
func (s *PostgresStore) RemoveTyping(ctx context.Context, room, username string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM typing_indicators WHERE room = $1 AND username = $2
	`, room, username)
	if err != nil {
		return wrapErr("remove typing", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
