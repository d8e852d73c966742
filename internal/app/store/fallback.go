package store

import (
	"context"

	"github.com/rs/zerolog"

	"retrochat/internal/pkg/logx"
)

// Fallback chains an ordered list of stores: every operation tries the
// primary first and falls through to the next store on any error, including
// the soft "schema not ready" signal wrapped in ErrUnavailable.
//
// Policy (availability over durability-to-primary): reads that exhaust the
// chain degrade to empty results instead of returning the error, and a write
// that lands on a secondary is never replicated back to the primary once it
// recovers. Failures are logged so the degradation stays observable.
type Fallback struct {
	stores []Store
	logger zerolog.Logger
}

// NewFallback chains the given stores in priority order. At least one store
// must be supplied.
func NewFallback(stores ...Store) *Fallback {
	return &Fallback{
		stores: stores,
		logger: logx.Logger().With().Str("component", "store.fallback").Logger(),
	}
}

// AppendMessage writes to the first store that accepts the message.
// The error of the last store is returned when the whole chain fails.
func (f *Fallback) AppendMessage(ctx context.Context, room, username, color, text string) (Message, error) {
	var lastErr error
	for i, s := range f.stores {
		msg, err := s.AppendMessage(ctx, room, username, color, text)
		if err == nil {
			if i > 0 {
				f.logger.Warn().Int("adapter_index", i).Str("room", room).
					Msg("Message appended via fallback store; it will not be replicated to the primary")
			}
			return msg, nil
		}
		f.logger.Warn().Err(err).Int("adapter_index", i).Str("room", room).
			Msg("Store failed to append message, trying next")
		lastErr = err
	}
	return Message{}, lastErr
}

// RecentMessages reads from the first store that answers. An exhausted chain
// yields an empty slice, never an error.
func (f *Fallback) RecentMessages(ctx context.Context, room string, limit int) ([]Message, error) {
	for i, s := range f.stores {
		messages, err := s.RecentMessages(ctx, room, limit)
		if err == nil {
			return messages, nil
		}
		f.logger.Warn().Err(err).Int("adapter_index", i).Str("room", room).
			Msg("Store failed to list messages, trying next")
	}
	return []Message{}, nil
}

// TrimMessages trims on the first store that answers. Trimming is
// housekeeping: an exhausted chain is logged, not surfaced.
func (f *Fallback) TrimMessages(ctx context.Context, room string, maxRetain int) error {
	for i, s := range f.stores {
		err := s.TrimMessages(ctx, room, maxRetain)
		if err == nil {
			return nil
		}
		f.logger.Warn().Err(err).Int("adapter_index", i).Str("room", room).
			Msg("Store failed to trim messages, trying next")
	}
	return nil
}

// HeartbeatTyping upserts on the first store that accepts it.
func (f *Fallback) HeartbeatTyping(ctx context.Context, room, username, color string) (TypingIndicator, error) {
	var lastErr error
	for i, s := range f.stores {
		indicator, err := s.HeartbeatTyping(ctx, room, username, color)
		if err == nil {
			return indicator, nil
		}
		f.logger.Warn().Err(err).Int("adapter_index", i).Str("room", room).
			Msg("Store failed to record typing heartbeat, trying next")
		lastErr = err
	}
	return TypingIndicator{}, lastErr
}

// ListTyping reads from the first store that answers; an exhausted chain
// yields an empty slice.
func (f *Fallback) ListTyping(ctx context.Context, room string) ([]TypingIndicator, error) {
	for i, s := range f.stores {
		indicators, err := s.ListTyping(ctx, room)
		if err == nil {
			return indicators, nil
		}
		f.logger.Warn().Err(err).Int("adapter_index", i).Str("room", room).
			Msg("Store failed to list typing indicators, trying next")
	}
	return []TypingIndicator{}, nil
}

// RemoveTyping deletes on every store in the chain, since a heartbeat may
// have landed on a secondary while the primary was down. The delete is
// idempotent everywhere, so the extra calls are harmless.
func (f *Fallback) RemoveTyping(ctx context.Context, room, username string) error {
	for i, s := range f.stores {
		if err := s.RemoveTyping(ctx, room, username); err != nil {
			f.logger.Warn().Err(err).Int("adapter_index", i).Str("room", room).
				Msg("Store failed to remove typing indicator")
		}
	}
	return nil
}

// Close closes every store in the chain, returning the first error seen.
func (f *Fallback) Close() error {
	var firstErr error
	for _, s := range f.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
