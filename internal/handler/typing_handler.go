/*
Package handler provides the HTTP handlers and routing setup for the chat service.

This file contains the handlers for the typing resource: listing the fresh
indicators for a room, the heartbeat upsert, and the explicit removal when a
user sends their message or goes idle.
*/
package handler

import (
	"net/http"

	"retrochat/internal/app/chat"
	"retrochat/internal/app/store"
	"retrochat/internal/pkg/errs"
	"retrochat/internal/pkg/logx"
	"retrochat/internal/pkg/req"
	"retrochat/internal/pkg/resp"
)

// HandleGetTyping lists the non-stale typing indicators for a room.
// Like the message read path, store failures degrade to an empty list.
func HandleGetTyping(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := roomOrDefault(r.URL.Query().Get("room"))

		indicators, err := deps.Store.ListTyping(r.Context(), room)
		if err != nil {
			logx.Error(err, "Failed to list typing indicators, degrading to empty result", "room", room)
			indicators = []store.TypingIndicator{}
		}
		if indicators == nil {
			indicators = []store.TypingIndicator{}
		}

		resp.RespondOK(w, indicators)
	}
}

// TypingHeartbeatInput is the request body for a typing heartbeat.
type TypingHeartbeatInput struct {
	Room      string `json:"room"`
	Username  string `json:"username" validate:"required"`
	UserColor string `json:"user_color"`
}

// HandlePostTyping upserts the typing indicator for (room, username) and
// pushes the heartbeat to live subscribers.
func HandlePostTyping(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input TypingHeartbeatInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, customErr)
			return
		}

		if err := validate.Struct(input); err != nil {
			resp.RespondError(w, errs.NewError(errs.ErrMissingUsername))
			return
		}

		room := roomOrDefault(input.Room)
		color := colorOrDefault(input.UserColor)

		indicator, err := deps.Store.HeartbeatTyping(r.Context(), room, input.Username, color)
		if err != nil {
			logx.Error(err, "All stores failed to record typing heartbeat", "room", room)
			resp.RespondError(w, errs.NewError(errs.ErrTypingUpdateFailed))
			return
		}

		deps.Hub.Publish(chat.Event{Type: chat.EventTyping, Room: room, Payload: indicator})

		resp.RespondSuccess(w, nil)
	}
}

// HandleDeleteTyping removes the indicator for (room, username). The delete is
// idempotent: removing an absent indicator still succeeds.
func HandleDeleteTyping(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		room := query.Get("room")
		username := query.Get("username")

		if room == "" || username == "" {
			resp.RespondError(w, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Store.RemoveTyping(r.Context(), room, username); err != nil {
			logx.Error(err, "Failed to remove typing indicator", "room", room, "username", username)
		}

		deps.Hub.Publish(chat.Event{Type: chat.EventStopTyping, Room: room, Payload: map[string]string{
			"room":     room,
			"username": username,
		}})

		resp.RespondSuccess(w, nil)
	}
}
