package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLimiter keeps the fixed-window state in the rate_limits table, so
// throttling survives process restarts when the chat store is Postgres.
type PostgresLimiter struct {
	pool   *pgxpool.Pool
	window time.Duration
}

// NewPostgresLimiter wraps an initialized connection pool.
func NewPostgresLimiter(pool *pgxpool.Pool, window time.Duration) *PostgresLimiter {
	return &PostgresLimiter{
		pool:   pool,
		window: window,
	}
}

// Allow attempts a single-statement atomic claim of the window: the upsert
// only advances last_post_at when the previous acceptance is outside the
// window, so concurrent posts for the same pair cannot both win.
func (l *PostgresLimiter) Allow(ctx context.Context, room, username string) (bool, time.Duration, error) {
	var acceptedAt time.Time
	err := l.pool.QueryRow(ctx, `
		INSERT INTO rate_limits (room, username, last_post_at)
		VALUES ($1, $2, now())
		ON CONFLICT (room, username)
		DO UPDATE SET last_post_at = now()
		WHERE rate_limits.last_post_at <= now() - make_interval(secs => $3)
		RETURNING last_post_at
	`, room, username, l.window.Seconds()).Scan(&acceptedAt)

	if err == nil {
		return true, 0, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, 0, fmt.Errorf("rate limit check: %w", err)
	}

	// Rejected: read the remaining wait for the client-facing message.
	var remainingSeconds float64
	err = l.pool.QueryRow(ctx, `
		SELECT greatest(extract(epoch FROM (last_post_at + make_interval(secs => $3) - now())), 0)
		FROM rate_limits
		WHERE room = $1 AND username = $2
	`, room, username, l.window.Seconds()).Scan(&remainingSeconds)
	if err != nil {
		return false, 0, fmt.Errorf("rate limit remaining wait: %w", err)
	}

	return false, time.Duration(remainingSeconds * float64(time.Second)), nil
}
