/*
Package handler provides the HTTP handlers and routing setup for the chat service.

This file contains the handlers for the messages resource: listing the recent
tail of a room and posting a new message through validation, the per-user
rate limiter, and the store's fallback chain.
*/
package handler

import (
	"math"
	"net/http"

	"github.com/go-playground/validator/v10"

	"retrochat/internal/app/chat"
	"retrochat/internal/app/store"
	"retrochat/internal/pkg/errs"
	"retrochat/internal/pkg/logx"
	"retrochat/internal/pkg/req"
	"retrochat/internal/pkg/resp"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// roomOrDefault resolves the room parameter, defaulting to the lobby.
func roomOrDefault(room string) string {
	if room == "" {
		return store.DefaultRoom
	}
	return room
}

// colorOrDefault resolves the display color, defaulting to a fixed neutral value.
func colorOrDefault(color string) string {
	if color == "" {
		return store.DefaultColor
	}
	return color
}

// HandleGetMessages lists the most recent messages for a room, ascending by
// creation time. Store failures degrade to an empty list: the client treats an
// empty list as "no messages yet", never as an error state.
func HandleGetMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := roomOrDefault(r.URL.Query().Get("room"))

		messages, err := deps.Store.RecentMessages(r.Context(), room, deps.Config.ReadLimit)
		if err != nil {
			logx.Error(err, "Failed to list messages, degrading to empty result", "room", room)
			messages = []store.Message{}
		}
		if messages == nil {
			messages = []store.Message{}
		}

		resp.RespondOK(w, messages)
	}
}

// PostMessageInput is the request body for posting a message.
type PostMessageInput struct {
	Room      string `json:"room"`
	Username  string `json:"username" validate:"required"`
	UserColor string `json:"user_color"`
	Message   string `json:"message" validate:"required"`
}

// HandlePostMessage validates the input, enforces the fixed-window posting
// policy, appends the message, trims the room to its retention cap, and
// pushes the new message to live subscribers.
func HandlePostMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PostMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, customErr)
			return
		}

		if err := validate.Struct(input); err != nil {
			resp.RespondError(w, errs.NewError(errs.ErrMissingFields))
			return
		}

		room := roomOrDefault(input.Room)
		color := colorOrDefault(input.UserColor)

		ok, retryAfter, err := deps.Limiter.Allow(r.Context(), room, input.Username)
		if err != nil {
			// A broken limiter store must not block chat; fail open.
			logx.Error(err, "Rate limiter check failed, allowing post", "room", room, "username", input.Username)
			ok = true
		}
		if !ok {
			waitSeconds := int(math.Ceil(retryAfter.Seconds()))
			resp.RespondThrottled(w, errs.NewError(errs.ErrPostThrottled, waitSeconds), waitSeconds)
			return
		}

		msg, err := deps.Store.AppendMessage(r.Context(), room, input.Username, color, input.Message)
		if err != nil {
			logx.Error(err, "All stores failed to append message", "room", room)
			resp.RespondError(w, errs.NewError(errs.ErrMessageInsertFailed))
			return
		}

		if err := deps.Store.TrimMessages(r.Context(), room, deps.Config.RetainLimit); err != nil {
			logx.Error(err, "Failed to trim room after append", "room", room)
		}

		deps.Hub.Publish(chat.Event{Type: chat.EventMessage, Room: room, Payload: msg})

		resp.RespondSuccess(w, map[string]any{"message": msg})
	}
}
