package handler

import (
	"retrochat/internal/app/chat"
	"retrochat/internal/app/store"
	"retrochat/internal/configs"
	"retrochat/internal/pkg/ratelimit"
)

// AppDeps bundles everything the HTTP handlers need.
type AppDeps struct {
	Config  *configs.AppConfig
	Store   store.Store
	Limiter ratelimit.Limiter
	Hub     *chat.Hub
}
