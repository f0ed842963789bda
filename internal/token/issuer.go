// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

// Package token mints short-lived, channel-scoped media credentials.
//
// A token is a capability, not an identity proof: anyone holding it can join
// the named channel in the granted role until expiry. The coordinator mints
// one token per call per participant and never reuses a token across calls.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/qrcall/internal/config"
)

// Role grants either full publish rights or receive-only access on a channel.
type Role string

const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

// Valid reports whether the role is one of the supported values.
func (r Role) Valid() bool {
	return r == RolePublisher || r == RoleSubscriber
}

// ErrNotConfigured indicates the application identity/secret pair is unset.
var ErrNotConfigured = errors.New("token: rtc app id and secret are not configured")

// Claims are the channel capability claims embedded in a media token.
type Claims struct {
	Channel string `json:"channel"`
	Role    Role   `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs channel capability tokens with the long-lived application
// identity/secret pair. It is stateless: output depends only on the secrets
// and the inputs.
type Issuer struct {
	appID      string
	secret     []byte
	defaultTTL time.Duration
}

// New creates an Issuer from the RTC configuration. It fails with
// ErrNotConfigured when the identity/secret pair is missing: the server can
// not form a usable initiate response without tokens.
func New(cfg config.RTCConfig) (*Issuer, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, ErrNotConfigured
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{
		appID:      cfg.AppID,
		secret:     []byte(cfg.AppSecret),
		defaultTTL: ttl,
	}, nil
}

// AppID returns the application identity clients pass to the media SDK.
func (i *Issuer) AppID() string {
	return i.appID
}

// DefaultTTL returns the configured token validity window.
func (i *Issuer) DefaultTTL() time.Duration {
	return i.defaultTTL
}

// Issue mints a token scoped to one channel and participant identity, valid
// for ttl. A non-positive ttl falls back to the configured default.
func (i *Issuer) Issue(channel, identity string, role Role, ttl time.Duration) (string, error) {
	if channel == "" {
		return "", fmt.Errorf("token: channel must not be empty")
	}
	if identity == "" {
		return "", fmt.Errorf("token: participant identity must not be empty")
	}
	if !role.Valid() {
		return "", fmt.Errorf("token: unknown role %q", role)
	}
	if ttl <= 0 {
		ttl = i.defaultTTL
	}

	now := time.Now()
	claims := &Claims{
		Channel: channel,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.appID,
			Subject:   identity,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims. Used by tests
// and by operators debugging token scope; the media service performs its own
// verification in production.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token: parse: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("token: invalid claims")
	}
	return claims, nil
}
