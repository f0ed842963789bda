// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/qrcall/internal/auth"
	"github.com/tomtom215/qrcall/internal/call"
	"github.com/tomtom215/qrcall/internal/models"
)

// defaultHistoryLimit caps call history pages when the client does not ask
// for a size.
const defaultHistoryLimit = 50

// HandleInitiateCall starts a call against a scanned QR code. Works for
// both anonymous scanners and authenticated users; the session, when
// present, attributes the call.
// POST /api/calls/initiate
func (h *Handler) HandleInitiateCall(w http.ResponseWriter, r *http.Request) {
	var req InitiateCallRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
		return
	}
	if req.CallType == "" {
		req.CallType = models.CallTypeAudio
	}

	callerUserID, _ := auth.UserIDFromContext(r.Context())

	result, err := h.coordinator.Initiate(r.Context(), req.QRID, req.CallType, callerUserID, req.CallerInfo)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, result)
}

// HandleRingCall marks the call as ringing on the receiver's device.
// POST /api/calls/{callId}/ring
func (h *Handler) HandleRingCall(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	callID := chi.URLParam(r, "callId")

	session, err := h.coordinator.Ring(r.Context(), callID, userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, session)
}

// HandleAnswerCall accepts a call and returns the receiver's channel
// credentials.
// POST /api/calls/{callId}/answer
func (h *Handler) HandleAnswerCall(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	callID := chi.URLParam(r, "callId")

	result, err := h.coordinator.Answer(r.Context(), callID, userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, result)
}

// HandleRejectCall declines a call.
// POST /api/calls/{callId}/reject
func (h *Handler) HandleRejectCall(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	callID := chi.URLParam(r, "callId")

	session, err := h.coordinator.Reject(r.Context(), callID, userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, session)
}

// HandleEndCall terminates a call. Authenticated participants act under
// their session; anonymous callers identify themselves with the caller UID
// they received at initiate. Ending an already-ended call conflicts with
// ALREADY_TERMINAL.
// POST /api/calls/{callId}/end
func (h *Handler) HandleEndCall(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")

	var req EndCallRequest
	if r.ContentLength > 0 {
		if !decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
			return
		}
	}

	actor, _ := auth.UserIDFromContext(r.Context())
	if actor == "" {
		actor = req.CallerUID
	}
	if actor == "" {
		respondError(w, r, http.StatusBadRequest, "MISSING_ACTOR", "callerUid is required for anonymous calls", nil)
		return
	}

	session, err := h.coordinator.End(r.Context(), callID, actor, req.Duration)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, session)
}

// HandleCallStatus returns the lifecycle status of a call. Public so
// anonymous callers can poll while waiting.
// GET /api/calls/{callId}/status
func (h *Handler) HandleCallStatus(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")

	session, err := h.coordinator.Status(r.Context(), callID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"callId":     session.CallID,
		"status":     session.Status,
		"duration":   session.Duration,
		"endedBy":    session.EndedBy,
		"answeredAt": session.AnsweredAt,
		"endTime":    session.EndTime,
	})
}

// HandleCallDetail returns the full call record to a participant.
// GET /api/calls/{callId}
func (h *Handler) HandleCallDetail(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	callID := chi.URLParam(r, "callId")

	session, err := h.coordinator.Detail(r.Context(), callID, userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, session)
}

// HandleCallHistory lists the user's calls, newest first.
// GET /api/calls/history
func (h *Handler) HandleCallHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	calls, err := h.coordinator.History(r.Context(), userID, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if calls == nil {
		calls = []*call.CallRecord{}
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"calls": calls,
		"count": len(calls),
	})
}
