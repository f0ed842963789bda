// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

// Package api provides the HTTP surface of QRCall: routing with Chi, JSON
// request/response handling, and the signaling websocket endpoint.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/qrcall/internal/auth"
	"github.com/tomtom215/qrcall/internal/middleware"
	"github.com/tomtom215/qrcall/internal/ratelimit"
)

// healthRateLimit is a permissive baseline for unbudgeted endpoints (health
// probes, metrics scrapes, websocket upgrades).
const healthRateLimit = 1000

// Router assembles the full HTTP handler tree.
type Router struct {
	handler *Handler
	limiter *ratelimit.Limiter
}

// NewRouter creates a Router from the handler set and rate limiter.
func NewRouter(handler *Handler, limiter *ratelimit.Limiter) *Router {
	return &Router{handler: handler, limiter: limiter}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	// Operational endpoints: permissive baseline throttle only.
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(healthRateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Get("/health", h.HandleHealth)
		r.Handle("/metrics", promhttp.Handler())
	})

	// Signaling websocket. Budgeted like health: one upgrade per client,
	// then the connection is long-lived.
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(healthRateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Get("/api/ws", h.HandleWebSocket)
	})

	// Credential endpoints: strict auth budget against brute force.
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Group(func(r chi.Router) {
			r.Use(router.limiter.Middleware(ratelimit.ClassAuth))
			r.Post("/register", h.HandleRegister)
			r.Post("/login", h.HandleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.limiter.Middleware(ratelimit.ClassGeneral))
			r.Use(auth.Require(h.jwt))
			r.Post("/logout", h.HandleLogout)
			r.Get("/profile", h.HandleProfile)
			r.Put("/profile", h.HandleUpdateProfile)
			r.Post("/device-token", h.HandleDeviceToken)
			r.Post("/change-password", h.HandleChangePassword)
			r.Get("/verify", h.HandleVerify)
		})
	})

	// QR management.
	r.Route("/api/qr", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.limiter.Middleware(ratelimit.ClassGeneral))

		// Scan resolution is public: the scanner is anonymous.
		r.Get("/{qrId}", h.HandleResolveQR)

		r.Group(func(r chi.Router) {
			r.Use(auth.Require(h.jwt))
			r.Post("/generate", h.HandleGenerateQR)
			r.Get("/user/codes", h.HandleListQRCodes)
			r.Patch("/{qrId}/toggle", h.HandleToggleQR)
			r.Delete("/{qrId}", h.HandleDeleteQR)
		})
	})

	// Push notifications.
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.limiter.Middleware(ratelimit.ClassGeneral))
		r.Use(auth.Require(h.jwt))
		r.Post("/send", h.HandleSendNotification)
		r.Post("/test", h.HandleTestNotification)
	})

	// Call lifecycle.
	r.Route("/api/calls", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		// Initiation carries its own tighter budget; the caller may be
		// anonymous, so auth is optional.
		r.Group(func(r chi.Router) {
			r.Use(router.limiter.Middleware(ratelimit.ClassCall))
			r.Use(auth.Optional(h.jwt))
			r.Post("/initiate", h.HandleInitiateCall)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.limiter.Middleware(ratelimit.ClassGeneral))

			// Anonymous callers poll status and end their own calls.
			r.Get("/{callId}/status", h.HandleCallStatus)
			r.With(auth.Optional(h.jwt)).Post("/{callId}/end", h.HandleEndCall)

			r.Group(func(r chi.Router) {
				r.Use(auth.Require(h.jwt))
				r.Get("/history", h.HandleCallHistory)
				r.Get("/{callId}", h.HandleCallDetail)
				r.Post("/{callId}/ring", h.HandleRingCall)
				r.Post("/{callId}/answer", h.HandleAnswerCall)
				r.Post("/{callId}/reject", h.HandleRejectCall)
			})
		})
	})

	// Media token refresh.
	r.Route("/api/rtc", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.limiter.Middleware(ratelimit.ClassGeneral))
		r.Use(auth.Optional(h.jwt))
		r.Post("/token", h.HandleRTCToken)
	})

	return r
}
