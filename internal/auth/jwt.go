// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

// Package auth provides user accounts and session authentication: bcrypt
// password storage, HMAC-SHA256 session tokens, and the HTTP middleware
// that resolves them.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/qrcall/internal/config"
)

// Claims represents session token claims. Subject carries the user ID.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// JWTManager handles session token creation and validation using
// HMAC-SHA256 signing.
type JWTManager struct {
	secret  []byte
	timeout time.Duration
}

// NewJWTManager creates a session token manager with the configured secret
// and timeout. The secret is stored as []byte to prevent string interning
// attacks.
func NewJWTManager(cfg config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}
	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = 7 * 24 * time.Hour
	}
	return &JWTManager{
		secret:  []byte(cfg.JWTSecret),
		timeout: timeout,
	}, nil
}

// GenerateToken creates a signed session token for userID, valid for the
// configured session timeout.
func (m *JWTManager) GenerateToken(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signedToken, nil
}

// ValidateToken validates a session token and extracts its claims. The
// signing algorithm is pinned to HMAC to prevent algorithm confusion
// attacks.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token missing user id")
	}
	return claims, nil
}
