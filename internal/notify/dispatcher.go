// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

// Package notify delivers push notifications through an external gateway.
//
// Push delivery is best-effort. A gateway failure never fails the calling
// operation; the dispatcher reports a degraded result and the caller carries
// on. When the gateway is not configured the dispatcher runs in mock mode
// and logs what it would have sent.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/qrcall/internal/config"
	"github.com/tomtom215/qrcall/internal/logging"
	"github.com/tomtom215/qrcall/internal/models"
)

// Dispatcher sends push payloads to device tokens via an HTTP gateway,
// wrapped in a circuit breaker so a dead gateway degrades fast instead of
// stacking up blocked requests.
type Dispatcher struct {
	gatewayURL string
	serverKey  string
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker[int]
	limiter    *rate.Limiter
	mock       bool
}

// New builds a Dispatcher from push configuration. An empty gateway URL or
// server key yields a mock dispatcher that reports success without sending.
func New(cfg config.PushConfig) *Dispatcher {
	d := &Dispatcher{
		gatewayURL: cfg.GatewayURL,
		serverKey:  cfg.ServerKey,
		mock:       cfg.GatewayURL == "" || cfg.ServerKey == "",
	}
	if d.mock {
		logging.Warn().Msg("Push gateway not configured, dispatcher running in mock mode")
		return d
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d.client = &http.Client{Timeout: timeout}

	d.breaker = gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        "push-gateway",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Push gateway circuit breaker state changed")
		},
	})

	if cfg.RatePerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), int(cfg.RatePerSecond)+1)
	}
	return d
}

// Mock reports whether the dispatcher is running without a real gateway.
func (d *Dispatcher) Mock() bool {
	return d.mock
}

// gatewayRequest is the wire shape the push gateway accepts.
type gatewayRequest struct {
	RegistrationIDs []string            `json:"registration_ids"`
	Notification    gatewayNotification `json:"notification"`
	Data            map[string]string   `json:"data,omitempty"`
}

type gatewayNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send delivers payload to all device tokens. It never returns an error for
// gateway trouble; the result carries the degradation reason instead. An
// empty token list is a successful no-op.
func (d *Dispatcher) Send(ctx context.Context, tokens []string, payload models.PushPayload) models.DispatchResult {
	if len(tokens) == 0 {
		return models.DispatchResult{Status: models.DispatchOK, Sent: 0}
	}
	if d.mock {
		logging.Info().
			Int("tokens", len(tokens)).
			Str("title", payload.Title).
			Msg("Mock push dispatch")
		return models.DispatchResult{Status: models.DispatchOK, Sent: len(tokens)}
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return models.Degraded(fmt.Sprintf("rate limiter wait: %v", err))
		}
	}

	sent, err := d.breaker.Execute(func() (int, error) {
		return d.post(ctx, tokens, payload)
	})
	if err != nil {
		logging.Warn().Err(err).Int("tokens", len(tokens)).Msg("Push dispatch failed")
		return models.Degraded(err.Error())
	}
	return models.DispatchResult{Status: models.DispatchOK, Sent: sent}
}

func (d *Dispatcher) post(ctx context.Context, tokens []string, payload models.PushPayload) (int, error) {
	body, err := json.Marshal(gatewayRequest{
		RegistrationIDs: tokens,
		Notification:    gatewayNotification{Title: payload.Title, Body: payload.Body},
		Data:            payload.Data,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+d.serverKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(snippet))
	}
	return len(tokens), nil
}
