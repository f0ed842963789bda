// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package api

import (
	"net/http"

	"github.com/tomtom215/qrcall/internal/auth"
	"github.com/tomtom215/qrcall/internal/models"
)

// HandleSendNotification pushes a notification to a named user's registered
// devices. Delivery is best effort; a degraded dispatch still returns 200
// with the outcome in the body.
// POST /api/notifications/send
func (h *Handler) HandleSendNotification(w http.ResponseWriter, r *http.Request) {
	var req SendNotificationRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
		return
	}

	target, err := h.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if len(target.DeviceTokens) == 0 {
		respondError(w, r, http.StatusBadRequest, "NO_DEVICE_TOKENS", "Target user has no registered devices", nil)
		return
	}

	result := h.dispatcher.Send(r.Context(), target.DeviceTokens, models.PushPayload{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"sentTo":   result.Sent,
		"degraded": result.IsDegraded(),
	})
}

// HandleTestNotification pushes a test notification to the authenticated
// user's own devices.
// POST /api/notifications/test
func (h *Handler) HandleTestNotification(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req TestNotificationRequest
	if r.ContentLength > 0 {
		if !decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
			return
		}
	}
	if req.Title == "" {
		req.Title = "Test Notification"
	}
	if req.Body == "" {
		req.Body = "This is a test notification"
	}

	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if len(user.DeviceTokens) == 0 {
		respondError(w, r, http.StatusBadRequest, "NO_DEVICE_TOKENS", "No registered devices for this account", nil)
		return
	}

	result := h.dispatcher.Send(r.Context(), user.DeviceTokens, models.PushPayload{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"sentTo":   result.Sent,
		"degraded": result.IsDegraded(),
	})
}
