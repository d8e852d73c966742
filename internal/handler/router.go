/*
Package handler provides the HTTP handlers and routing setup for the chat service.

This file defines the main Router, applying logging, CORS, and IP-based rate
limiting middleware before delegating to the messages, typing, and WebSocket
handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"retrochat/internal/pkg/limiter"
	"retrochat/internal/pkg/logx"
	"retrochat/internal/pkg/resp"
)

// Transport-level flood limits per client IP. These sit well above the
// per-user posting window so they never throttle a well-behaved client.
const (
	WriteRate  = 5.0
	WriteBurst = 10
	WsRate     = 0.2
	WsBurst    = 5
)

// Router sets up the chi routing table for the application.
func Router(deps *AppDeps) http.Handler {
	writeLimiter := limiter.NewIPRateLimiter(rate.Limit(WriteRate), WriteBurst)
	wsLimiter := limiter.NewIPRateLimiter(rate.Limit(WsRate), WsBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondOK(w, map[string]string{
			"status":  "ok",
			"service": "retrochat",
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/messages", HandleGetMessages(deps))
		api.With(writeLimiter.Middleware).Post("/messages", HandlePostMessage(deps))

		api.Get("/typing", HandleGetTyping(deps))
		api.With(writeLimiter.Middleware).Post("/typing", HandlePostTyping(deps))
		api.Delete("/typing", HandleDeleteTyping(deps))
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, wsLimiter, deps))

	return r
}
