// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

// Package main is the entry point for the QRCall server.
//
// QRCall is a signaling backend for QR-code-triggered audio/video calls:
// a visitor scans a printed QR code and is connected to the code's owner
// without installing anything or knowing a phone number.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (defaults, YAML file, env)
//  2. Document store: BadgerDB for calls, QR codes, and accounts
//  3. Signaling hub: room-keyed websocket event delivery
//  4. Token issuer: HMAC channel capability tokens for the media service
//  5. Push dispatcher: best-effort gateway delivery behind a breaker
//  6. Call coordinator and missed-call sweeper
//  7. HTTP server: REST API plus the signaling websocket
//
// Long-running components run under a suture supervision tree with a
// messaging layer (hub, sweeper) isolated from the api layer (HTTP server).
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the hub closes its clients, and the store flushes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/qrcall/internal/api"
	"github.com/tomtom215/qrcall/internal/auth"
	"github.com/tomtom215/qrcall/internal/call"
	"github.com/tomtom215/qrcall/internal/config"
	"github.com/tomtom215/qrcall/internal/eventbus"
	"github.com/tomtom215/qrcall/internal/logging"
	"github.com/tomtom215/qrcall/internal/notify"
	"github.com/tomtom215/qrcall/internal/qr"
	"github.com/tomtom215/qrcall/internal/ratelimit"
	"github.com/tomtom215/qrcall/internal/store"
	"github.com/tomtom215/qrcall/internal/supervisor"
	"github.com/tomtom215/qrcall/internal/supervisor/services"
	"github.com/tomtom215/qrcall/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("rtc_configured", cfg.RTCConfigured()).
		Bool("rate_limit_disabled", cfg.RateLimit.Disabled).
		Msg("Configuration loaded")

	// Document store.
	var st *store.Store
	if cfg.Database.InMemory {
		st, err = store.OpenInMemory()
	} else {
		st, err = store.Open(cfg.Database.Path)
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open document store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close document store")
		}
	}()

	// Media token issuer. Without RTC credentials the server can accept
	// registrations and manage QR codes but cannot connect calls.
	issuer, err := token.New(cfg.RTC)
	if err != nil {
		logging.Fatal().Err(err).Msg("RTC credentials missing: set RTC_APP_ID and RTC_APP_SECRET")
	}

	jwtManager, err := auth.NewJWTManager(cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize session tokens")
	}

	hub := eventbus.NewHub()
	dispatcher := notify.New(cfg.Push)
	accounts := auth.NewService(st, jwtManager)
	qrService := qr.NewService(st, cfg.Server.PublicURL)
	coordinator := call.NewCoordinator(st, qrService, issuer, hub, dispatcher)
	sweeper := call.NewSweeper(st, hub, cfg.Calls)
	limiter := ratelimit.New(cfg.RateLimit, ratelimit.NewMemoryCounter(100_000))

	handler := api.NewHandler(cfg, st, coordinator, qrService, accounts, jwtManager, issuer, dispatcher, hub)
	router := api.NewRouter(handler, limiter)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	// Supervision tree: messaging layer (hub, sweeper) and api layer
	// (HTTP server) fail independently.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build supervisor tree")
	}
	tree.AddMessagingService(services.NewSignalingHubService(hub))
	tree.AddMessagingService(sweeper)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := tree.ServeBackground(ctx)

	logging.Info().
		Str("addr", server.Addr).
		Str("public_url", cfg.Server.PublicURL).
		Msg("QRCall server started")

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree exited with error")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree failed")
		}
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("QRCall server stopped")
}
