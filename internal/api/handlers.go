// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/qrcall/internal/auth"
	"github.com/tomtom215/qrcall/internal/call"
	"github.com/tomtom215/qrcall/internal/config"
	"github.com/tomtom215/qrcall/internal/eventbus"
	"github.com/tomtom215/qrcall/internal/qr"
	"github.com/tomtom215/qrcall/internal/store"
)

// Handler bundles the dependencies of all HTTP handlers.
type Handler struct {
	cfg         *config.Config
	store       *store.Store
	coordinator *call.Coordinator
	qr          *qr.Service
	accounts    *auth.Service
	jwt         *auth.JWTManager
	issuer      call.Issuer
	dispatcher  call.Dispatcher
	hub         *eventbus.Hub
	upgrader    websocket.Upgrader
}

// NewHandler creates the API handler set.
func NewHandler(
	cfg *config.Config,
	st *store.Store,
	coordinator *call.Coordinator,
	qrs *qr.Service,
	accounts *auth.Service,
	jwt *auth.JWTManager,
	issuer call.Issuer,
	dispatcher call.Dispatcher,
	hub *eventbus.Hub,
) *Handler {
	return &Handler{
		cfg:         cfg,
		store:       st,
		coordinator: coordinator,
		qr:          qrs,
		accounts:    accounts,
		jwt:         jwt,
		issuer:      issuer,
		dispatcher:  dispatcher,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r, cfg.Security.CORSOrigins)
			},
		},
	}
}

// checkOrigin accepts websocket upgrades from configured CORS origins. A
// wildcard entry accepts any origin; same-origin requests (no Origin header)
// are always accepted.
func checkOrigin(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
