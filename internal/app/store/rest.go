package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/samber/lo"

	"retrochat/internal/pkg/logx"
	"retrochat/internal/pkg/randx"
)

// RestStore talks to a PostgREST-compatible tabular REST facade (e.g. a
// Supabase project) exposing the messages and typing_indicators tables.
//
// The facade may report a transient "schema not ready" condition while the
// tenant's schema cache warms up; that is mapped to ErrUnavailable so the
// fallback chain can take over instead of failing the request.
type RestStore struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	typingTTL time.Duration

	now func() time.Time
}

// restError is the error body PostgREST returns on failure.
type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// schemaNotReadyCodes are the facade error codes meaning the tables are not
// visible yet. PGRST205: table not found in schema cache; 42P01: undefined table.
var schemaNotReadyCodes = map[string]struct{}{
	"PGRST205": {},
	"42P01":    {},
}

// NewRestStore creates a REST-backed store. baseURL is the table root of the
// facade (e.g. "https://example.supabase.co/rest/v1").
func NewRestStore(baseURL, apiKey string, typingTTL time.Duration) *RestStore {
	return &RestStore{
		baseURL:   baseURL,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 5 * time.Second},
		typingTTL: typingTTL,
		now:       time.Now,
	}
}

// do performs one request against the facade and decodes the response into out
// (when out is non-nil). Every transport or facade failure is collapsed into
// ErrUnavailable for the fallback chain.
func (s *RestStore) do(ctx context.Context, method, table string, query url.Values, prefer string, body, out any) error {
	endpoint := s.baseURL + "/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("rest %s %s: encode body: %w", method, table, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("rest %s %s: %w", method, table, err)
	}

	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("rest %s %s: %w (%v)", method, table, ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))

		var facadeErr restError
		_ = json.Unmarshal(raw, &facadeErr)
		if _, notReady := schemaNotReadyCodes[facadeErr.Code]; notReady {
			logx.Warn("REST facade schema not ready, deferring to fallback",
				"table", table, "facade_code", facadeErr.Code)
			return fmt.Errorf("rest %s %s: schema not ready: %w", method, table, ErrUnavailable)
		}

		return fmt.Errorf("rest %s %s: status %d: %w", method, table, res.StatusCode, ErrUnavailable)
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("rest %s %s: decode response: %w", method, table, ErrUnavailable)
		}
	}

	return nil
}

// AppendMessage inserts a row and returns the stored representation.
func (s *RestStore) AppendMessage(ctx context.Context, room, username, color, text string) (Message, error) {
	row := Message{
		ID:        randx.MessageID(),
		Room:      room,
		Username:  username,
		UserColor: color,
		Message:   text,
		CreatedAt: s.now().UTC(),
	}

	var inserted []Message
	err := s.do(ctx, http.MethodPost, "messages", nil, "return=representation", row, &inserted)
	if err != nil {
		return Message{}, err
	}
	if len(inserted) == 0 {
		return Message{}, fmt.Errorf("rest insert returned no representation: %w", ErrUnavailable)
	}

	return inserted[0], nil
}

// RecentMessages fetches the newest rows (descending) and returns them ascending.
func (s *RestStore) RecentMessages(ctx context.Context, room string, limit int) ([]Message, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("room", "eq."+room)
	query.Set("order", "created_at.desc")
	query.Set("limit", fmt.Sprintf("%d", limit))

	var messages []Message
	if err := s.do(ctx, http.MethodGet, "messages", query, "", nil, &messages); err != nil {
		return nil, err
	}

	return lo.Reverse(messages), nil
}

// TrimMessages finds the creation time of the oldest retained row and deletes
// everything at or before the first row beyond the window. Rows sharing the
// boundary timestamp are evicted together.
func (s *RestStore) TrimMessages(ctx context.Context, room string, maxRetain int) error {
	query := url.Values{}
	query.Set("select", "created_at")
	query.Set("room", "eq."+room)
	query.Set("order", "created_at.desc")
	query.Set("offset", fmt.Sprintf("%d", maxRetain))
	query.Set("limit", "1")

	var boundary []struct {
		CreatedAt time.Time `json:"created_at"`
	}
	if err := s.do(ctx, http.MethodGet, "messages", query, "", nil, &boundary); err != nil {
		return err
	}
	if len(boundary) == 0 {
		return nil
	}

	del := url.Values{}
	del.Set("room", "eq."+room)
	del.Set("created_at", "lte."+boundary[0].CreatedAt.UTC().Format(time.RFC3339Nano))

	return s.do(ctx, http.MethodDelete, "messages", del, "", nil, nil)
}

// HeartbeatTyping upserts the indicator via merge-duplicates on the
// (room, username) unique constraint. The replacement carries a fresh ID,
// matching the replace-not-append semantics of the other backends.
func (s *RestStore) HeartbeatTyping(ctx context.Context, room, username, color string) (TypingIndicator, error) {
	row := TypingIndicator{
		ID:        randx.TypingID(),
		Room:      room,
		Username:  username,
		UserColor: color,
		UpdatedAt: s.now().UTC(),
	}

	query := url.Values{}
	query.Set("on_conflict", "room,username")

	var upserted []TypingIndicator
	err := s.do(ctx, http.MethodPost, "typing_indicators", query,
		"resolution=merge-duplicates,return=representation", row, &upserted)
	if err != nil {
		return TypingIndicator{}, err
	}
	if len(upserted) == 0 {
		return TypingIndicator{}, fmt.Errorf("rest upsert returned no representation: %w", ErrUnavailable)
	}

	return upserted[0], nil
}

// ListTyping purges stale rows for the room, then fetches the fresh ones.
func (s *RestStore) ListTyping(ctx context.Context, room string) ([]TypingIndicator, error) {
	cutoff := s.now().UTC().Add(-s.typingTTL).Format(time.RFC3339Nano)

	purge := url.Values{}
	purge.Set("room", "eq."+room)
	purge.Set("updated_at", "lt."+cutoff)
	if err := s.do(ctx, http.MethodDelete, "typing_indicators", purge, "", nil, nil); err != nil {
		// The purge is best effort; the read filter below still upholds staleness.
		logx.Warn("Failed to purge stale typing indicators via REST facade", "room", room)
	}

	query := url.Values{}
	query.Set("select", "*")
	query.Set("room", "eq."+room)
	query.Set("updated_at", "gte."+cutoff)

	var indicators []TypingIndicator
	if err := s.do(ctx, http.MethodGet, "typing_indicators", query, "", nil, &indicators); err != nil {
		return nil, err
	}

	return indicators, nil
}

// RemoveTyping deletes the indicator row for (room, username). Idempotent:
// the facade returns success for a delete that matches no rows.
func (s *RestStore) RemoveTyping(ctx context.Context, room, username string) error {
	query := url.Values{}
	query.Set("room", "eq."+room)
	query.Set("username", "eq."+username)

	return s.do(ctx, http.MethodDelete, "typing_indicators", query, "", nil, nil)
}

// Close is a no-op; the underlying http.Client needs no teardown.
func (s *RestStore) Close() error {
	return nil
}
