// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package api

import (
	"net/http"
	"strings"

	"github.com/tomtom215/qrcall/internal/models"
	"github.com/tomtom215/qrcall/internal/token"
)

// HandleRTCToken issues a fresh channel token for an ongoing call. The
// requested uid must be one of the call's derived participant identities,
// and the call must still be live.
// POST /api/rtc/token
func (h *Handler) HandleRTCToken(w http.ResponseWriter, r *http.Request) {
	var req RTCTokenRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
		return
	}

	callID := strings.TrimPrefix(req.ChannelName, "call_")
	if callID == req.ChannelName {
		respondError(w, r, http.StatusBadRequest, "INVALID_CHANNEL", "Channel name is not a call channel", nil)
		return
	}

	session, err := h.coordinator.Status(r.Context(), callID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if session.Status.IsTerminal() {
		respondError(w, r, http.StatusConflict, "ALREADY_TERMINAL", "Call already ended", nil)
		return
	}

	if !validParticipantUID(session, req.UID) {
		respondError(w, r, http.StatusForbidden, "FORBIDDEN", "uid is not a participant of this call", nil)
		return
	}

	role := token.Role(req.Role)
	if req.Role == "" {
		role = token.RolePublisher
	}

	issued, err := h.issuer.Issue(session.ChannelName, req.UID, role, 0)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{
		"token":       issued,
		"appId":       h.issuer.AppID(),
		"channelName": session.ChannelName,
		"uid":         req.UID,
	})
}

// validParticipantUID reports whether uid is one of the call's derived
// media identities.
func validParticipantUID(session *models.Call, uid string) bool {
	if uid == models.ReceiverUIDFor(session.ReceiverID) {
		return true
	}
	if session.AnonymousCall {
		return uid == models.CallerUIDFor(session.CallID)
	}
	return uid == models.ReceiverUIDFor(session.CallerID)
}
