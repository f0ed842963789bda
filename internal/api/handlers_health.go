// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package api

import (
	"net/http"
	"time"
)

// serverStart is used to report uptime from the health endpoint.
var serverStart = time.Now()

// HandleHealth reports liveness plus a cheap readiness probe of the
// document store.
// GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK

	dbStatus := "ok"
	if h.store == nil || h.store.DB() == nil || h.store.DB().IsClosed() {
		dbStatus = "unavailable"
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	respondSuccess(w, httpStatus, map[string]interface{}{
		"status":         status,
		"database":       dbStatus,
		"rtcConfigured":  h.cfg.RTCConfigured(),
		"uptimeSeconds":  int64(time.Since(serverStart) / time.Second),
		"signalingPeers": h.hub.ClientCount(),
	})
}
