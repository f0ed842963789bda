// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

// Package config loads QRCall configuration with Koanf v2 using layered
// sources: built-in defaults, an optional YAML file, then environment
// variable overrides.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the QRCall server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	RTC       RTCConfig       `koanf:"rtc"`
	Push      PushConfig      `koanf:"push"`
	Database  DatabaseConfig  `koanf:"database"`
	Calls     CallsConfig     `koanf:"calls"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// PublicURL is the externally visible base URL used to build the
	// payload links embedded in generated QR images.
	PublicURL string `koanf:"public_url"`
}

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	// JWTSecret signs user session tokens. Required.
	JWTSecret string `koanf:"jwt_secret"`

	// SessionTimeout bounds user session token validity.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// RTCConfig holds the credentials for the media token issuer.
// AppID and AppSecret are the long-lived application identity/secret pair;
// tokens minted with them are channel-scoped capabilities.
type RTCConfig struct {
	AppID     string        `koanf:"app_id"`
	AppSecret string        `koanf:"app_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

// PushConfig holds push gateway settings. An empty GatewayURL or ServerKey
// switches the dispatcher into mock mode.
type PushConfig struct {
	GatewayURL string        `koanf:"gateway_url"`
	ServerKey  string        `koanf:"server_key"`
	Timeout    time.Duration `koanf:"timeout"`

	// RatePerSecond throttles outbound gateway requests. Zero disables
	// the throttle.
	RatePerSecond float64 `koanf:"rate_per_second"`
}

// DatabaseConfig holds document store settings.
type DatabaseConfig struct {
	Path string `koanf:"path"`

	// InMemory runs Badger without persistence. Intended for tests and
	// local development only.
	InMemory bool `koanf:"in_memory"`
}

// CallsConfig tunes the call lifecycle coordinator.
type CallsConfig struct {
	// RingTimeout is how long a call may stay in the initiated state
	// before the sweeper transitions it to missed.
	RingTimeout time.Duration `koanf:"ring_timeout"`

	// SweepInterval is how often the missed-call sweeper runs.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// RateLimitBudget is one endpoint class budget: Points requests per Window,
// then Block on exhaustion.
type RateLimitBudget struct {
	Points int           `koanf:"points"`
	Window time.Duration `koanf:"window"`
	Block  time.Duration `koanf:"block"`
}

// RateLimitConfig holds the per-endpoint-class request budgets.
type RateLimitConfig struct {
	Disabled bool            `koanf:"disabled"`
	Auth     RateLimitBudget `koanf:"auth"`
	General  RateLimitBudget `koanf:"general"`
	Call     RateLimitBudget `koanf:"call"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks invariants that cannot be expressed through defaults.
func (c *Config) Validate() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Calls.RingTimeout <= 0 {
		return fmt.Errorf("calls.ring_timeout must be positive")
	}
	if c.Calls.SweepInterval <= 0 {
		return fmt.Errorf("calls.sweep_interval must be positive")
	}
	for _, b := range []RateLimitBudget{c.RateLimit.Auth, c.RateLimit.General, c.RateLimit.Call} {
		if b.Points <= 0 || b.Window <= 0 || b.Block <= 0 {
			return fmt.Errorf("rate limit budgets must be positive")
		}
	}
	return nil
}

// RTCConfigured reports whether the media token issuer credentials are set.
func (c *Config) RTCConfigured() bool {
	return c.RTC.AppID != "" && c.RTC.AppSecret != ""
}
