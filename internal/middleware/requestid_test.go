// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == "" {
		t.Fatal("no request ID on the context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("header X-Request-ID = %q, context = %q", got, seen)
	}
	if len(seen) != 36 {
		t.Errorf("generated ID %q is not a UUID", seen)
	}
}

func TestRequestIDKeepsUpstreamID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "upstream-42" {
		t.Errorf("context ID = %q, want upstream-42", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "upstream-42" {
		t.Errorf("header ID = %q, want upstream-42", got)
	}
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID on bare context = %q, want empty", got)
	}
}
