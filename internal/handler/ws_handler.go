/*
Package handler provides the HTTP handlers and routing setup for the chat service.

This file contains the WebSocket upgrade handler for the live event feed.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"retrochat/internal/app/chat"
	"retrochat/internal/pkg/errs"
	"retrochat/internal/pkg/limiter"
	"retrochat/internal/pkg/logx"
	"retrochat/internal/pkg/resp"
)

// HandleWebSocket upgrades the connection and subscribes it to the requested
// room's event feed. The feed is read-only; clients keep posting over HTTP.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		room := roomOrDefault(r.URL.Query().Get("room"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		logx.Info("WebSocket subscriber connected", "room", room)

		chat.NewClient(deps.Hub, conn, room).Subscribe()
	}
}
