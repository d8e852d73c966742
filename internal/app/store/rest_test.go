package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRestStore_AppendMessage(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal(http.MethodPost, r.Method)
		req.Equal("/messages", r.URL.Path)
		req.Equal("test-key", r.Header.Get("apikey"))
		req.Equal("Bearer test-key", r.Header.Get("Authorization"))
		req.Equal("return=representation", r.Header.Get("Prefer"))

		var row Message
		req.NoError(json.NewDecoder(r.Body).Decode(&row))
		req.Equal("lobby", row.Room)
		req.Equal("Ape42", row.Username)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]Message{row})
	}))
	defer srv.Close()

	s := NewRestStore(srv.URL, "test-key", 10*time.Second)

	msg, err := s.AppendMessage(context.Background(), "lobby", "Ape42", "#ff0000", "gm")
	req.NoError(err)
	req.Equal("gm", msg.Message)
	req.NotEmpty(msg.ID)
}

func TestRestStore_RecentMessages_ReversesDescendingFetch(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("eq.lobby", r.URL.Query().Get("room"))
		req.Equal("created_at.desc", r.URL.Query().Get("order"))
		req.Equal("100", r.URL.Query().Get("limit"))

		// Facade answers newest-first.
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Message{
			{ID: "b", Room: "lobby", Username: "Ape42", Message: "second", CreatedAt: now},
			{ID: "a", Room: "lobby", Username: "Ape42", Message: "first", CreatedAt: now.Add(-time.Second)},
		})
	}))
	defer srv.Close()

	s := NewRestStore(srv.URL, "test-key", 10*time.Second)

	messages, err := s.RecentMessages(context.Background(), "lobby", 100)
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal("first", messages[0].Message)
	req.Equal("second", messages[1].Message)
}

func TestRestStore_SchemaNotReadyIsUnavailable(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(restError{
			Code:    "PGRST205",
			Message: "Could not find the table 'public.messages' in the schema cache",
		})
	}))
	defer srv.Close()

	s := NewRestStore(srv.URL, "test-key", 10*time.Second)

	_, err := s.AppendMessage(context.Background(), "lobby", "Ape42", "#ff0000", "gm")
	req.ErrorIs(err, ErrUnavailable)

	_, err = s.RecentMessages(context.Background(), "lobby", 100)
	req.ErrorIs(err, ErrUnavailable)
}

func TestRestStore_UnreachableFacadeIsUnavailable(t *testing.T) {
	req := require.New(t)

	// Point at a closed server.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	s := NewRestStore(srv.URL, "test-key", 10*time.Second)

	_, err := s.RecentMessages(context.Background(), "lobby", 100)
	req.ErrorIs(err, ErrUnavailable)
}

func TestRestStore_HeartbeatTyping_Upserts(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal(http.MethodPost, r.Method)
		req.Equal("/typing_indicators", r.URL.Path)
		req.Equal("room,username", r.URL.Query().Get("on_conflict"))
		req.Equal("resolution=merge-duplicates,return=representation", r.Header.Get("Prefer"))

		var row TypingIndicator
		req.NoError(json.NewDecoder(r.Body).Decode(&row))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]TypingIndicator{row})
	}))
	defer srv.Close()

	s := NewRestStore(srv.URL, "test-key", 10*time.Second)

	indicator, err := s.HeartbeatTyping(context.Background(), "lobby", "Ape42", "#ff0000")
	req.NoError(err)
	req.Equal("Ape42", indicator.Username)
	req.False(indicator.UpdatedAt.IsZero())
}

func TestRestStore_ListTyping_PurgesThenFetches(t *testing.T) {
	req := require.New(t)
	var sawPurge bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			sawPurge = true
			req.NotEmpty(r.URL.Query().Get("updated_at"))
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			req.Contains(r.URL.Query().Get("updated_at"), "gte.")
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode([]TypingIndicator{
				{ID: "t1", Room: "lobby", Username: "Ape42", UpdatedAt: time.Now().UTC()},
			})
		}
	}))
	defer srv.Close()

	s := NewRestStore(srv.URL, "test-key", 10*time.Second)

	indicators, err := s.ListTyping(context.Background(), "lobby")
	req.NoError(err)
	req.True(sawPurge)
	req.Len(indicators, 1)
	req.Equal("Ape42", indicators[0].Username)
}
