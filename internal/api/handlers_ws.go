// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package api

import (
	"net/http"

	"github.com/tomtom215/qrcall/internal/eventbus"
	"github.com/tomtom215/qrcall/internal/logging"
	"github.com/tomtom215/qrcall/internal/metrics"
)

// HandleWebSocket upgrades the connection and attaches it to the signaling
// hub. The client must send a join-user message naming its room before it
// receives call events; authentication happens at that layer because native
// websocket clients cannot set arbitrary headers.
// GET /api/ws
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := eventbus.NewClient(h.hub, conn)
	h.hub.Register <- client
	metrics.SignalingClients.Set(float64(h.hub.ClientCount()))
	client.Start()
}
