// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package auth

import (
	"context"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/qrcall/internal/logging"
)

type contextKey int

const userIDKey contextKey = iota

// ContextWithUserID returns a context carrying the authenticated user ID.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the authenticated user ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Require returns middleware that rejects requests without a valid session
// token. The authenticated user ID is placed on the request context.
func Require(manager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeUnauthorized(w, "Missing authentication token")
				return
			}
			claims, err := manager.ValidateToken(token)
			if err != nil {
				logging.Debug().Err(err).Msg("session token rejected")
				writeUnauthorized(w, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), claims.UserID)))
		})
	}
}

// Optional returns middleware that resolves a session token when present
// but lets unauthenticated requests through. Used on scan-facing endpoints
// where the caller may be anonymous.
func Optional(manager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if claims, err := manager.ValidateToken(token); err == nil {
					r = r.WithContext(ContextWithUserID(r.Context(), claims.UserID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// unauthorizedBody mirrors the API error envelope without importing the api
// package.
type unauthorizedBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	var body unauthorizedBody
	body.Error.Code = "UNAUTHORIZED"
	body.Error.Message = message
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("failed to write unauthorized response")
	}
}
