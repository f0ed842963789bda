// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/qrcall/internal/auth"
	"github.com/tomtom215/qrcall/internal/call"
	"github.com/tomtom215/qrcall/internal/logging"
	"github.com/tomtom215/qrcall/internal/middleware"
	"github.com/tomtom215/qrcall/internal/qr"
	"github.com/tomtom215/qrcall/internal/store"
	"github.com/tomtom215/qrcall/internal/token"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError carries a machine-readable code plus a human-readable message.
type APIError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Meta carries response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

// sanitizeLogValue removes control characters from strings to prevent log
// injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess sends a success envelope wrapping data.
func respondSuccess(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, &APIResponse{
		Success: true,
		Data:    data,
		Meta:    &Meta{Timestamp: time.Now().UTC()},
	})
}

// respondError sends an error envelope.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		logging.Ctx(r.Context()).Error().
			Str("code", sanitizeLogValue(code)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}
	respondJSON(w, status, &APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			RequestID: middleware.GetRequestID(r.Context()),
		},
		Meta: &Meta{Timestamp: time.Now().UTC()},
	})
}

// respondDomainError maps a domain error to its HTTP status and error code.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, call.ErrNotFound), errors.Is(err, qr.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound), errors.Is(err, store.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, call.ErrExpired), errors.Is(err, qr.ErrExpired):
		respondError(w, r, http.StatusGone, "QR_EXPIRED", "QR code is expired", nil)
	case errors.Is(err, call.ErrForbidden), errors.Is(err, qr.ErrForbidden):
		respondError(w, r, http.StatusForbidden, "FORBIDDEN", "You are not allowed to perform this action", nil)
	case errors.Is(err, call.ErrAlreadyTerminal):
		respondError(w, r, http.StatusConflict, "ALREADY_TERMINAL", "Call already ended", nil)
	case errors.Is(err, call.ErrInvalidState):
		respondError(w, r, http.StatusConflict, "INVALID_STATE", "Call is not in a state that allows this transition", nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	case errors.Is(err, auth.ErrEmailTaken):
		respondError(w, r, http.StatusConflict, "EMAIL_TAKEN", "Email is already registered", nil)
	case errors.Is(err, token.ErrNotConfigured):
		respondError(w, r, http.StatusServiceUnavailable, "RTC_NOT_CONFIGURED", "Calling is not configured on this server", err)
	default:
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
	}
}

// decodeJSON decodes a request body into dst, rejecting oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", nil)
		return false
	}
	return true
}
