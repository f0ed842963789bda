// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
)

func echoUserHandler(t *testing.T, gotUserID *string, gotOK *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUserID, *gotOK = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireRejectsMissingToken(t *testing.T) {
	m := testManager(t)
	var userID string
	var ok bool
	handler := Require(m)(echoUserHandler(t, &userID, &ok))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body unauthorizedBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || body.Error.Code != "UNAUTHORIZED" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestRequireRejectsInvalidToken(t *testing.T) {
	m := testManager(t)
	var userID string
	var ok bool
	handler := Require(m)(echoUserHandler(t, &userID, &ok))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer bogus.token.here")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequirePassesUserID(t *testing.T) {
	m := testManager(t)
	token, err := m.GenerateToken("user-1")
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	var userID string
	var ok bool
	handler := Require(m)(echoUserHandler(t, &userID, &ok))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !ok || userID != "user-1" {
		t.Errorf("context user = (%q, %v), want (user-1, true)", userID, ok)
	}
}

func TestOptionalLetsAnonymousThrough(t *testing.T) {
	m := testManager(t)
	var userID string
	var ok bool
	handler := Optional(m)(echoUserHandler(t, &userID, &ok))

	req := httptest.NewRequest(http.MethodPost, "/api/calls/initiate", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ok {
		t.Errorf("anonymous request resolved user %q", userID)
	}
}

func TestOptionalResolvesPresentToken(t *testing.T) {
	m := testManager(t)
	token, err := m.GenerateToken("user-1")
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	var userID string
	var ok bool
	handler := Optional(m)(echoUserHandler(t, &userID, &ok))

	req := httptest.NewRequest(http.MethodPost, "/api/calls/initiate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !ok || userID != "user-1" {
		t.Errorf("context user = (%q, %v), want (user-1, true)", userID, ok)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := bearerToken(req); got != "" {
		t.Errorf("bearerToken without header = %q, want empty", got)
	}

	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if got := bearerToken(req); got != "" {
		t.Errorf("bearerToken with Basic scheme = %q, want empty", got)
	}

	req.Header.Set("Authorization", "bearer abc123")
	if got := bearerToken(req); got != "abc123" {
		t.Errorf("bearerToken case-insensitive = %q, want abc123", got)
	}
}
