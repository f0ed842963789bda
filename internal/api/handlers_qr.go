// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/qrcall/internal/auth"
	"github.com/tomtom215/qrcall/internal/models"
)

// HandleGenerateQR creates a new callable QR code for the authenticated
// user.
// POST /api/qr/generate
func (h *Handler) HandleGenerateQR(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req GenerateQRRequest
	if r.ContentLength > 0 {
		if !decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
			return
		}
	}

	generated, err := h.qr.Generate(r.Context(), userID, req.Name, req.ExpiresAt)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, generated)
}

// HandleListQRCodes lists the authenticated user's QR codes.
// GET /api/qr/user/codes
func (h *Handler) HandleListQRCodes(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	codes, err := h.qr.ListByOwner(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if codes == nil {
		codes = []*models.QRCode{}
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"qrCodes": codes,
		"count":   len(codes),
	})
}

// HandleResolveQR resolves a scanned QR code to its owner's public profile.
// This is the endpoint behind the link encoded in every QR image; it tells
// the scanning client who it is about to call.
// GET /api/qr/{qrId}
func (h *Handler) HandleResolveQR(w http.ResponseWriter, r *http.Request) {
	qrID := chi.URLParam(r, "qrId")

	code, err := h.qr.Get(r.Context(), qrID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	owner := models.UnknownProfile()
	if user, err := h.store.GetUser(r.Context(), code.OwnerID); err == nil {
		owner = user.Profile()
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"qrId":  code.QRID,
		"name":  code.Name,
		"owner": owner,
	})
}

// HandleToggleQR flips the active flag on one of the user's QR codes.
// PATCH /api/qr/{qrId}/toggle
func (h *Handler) HandleToggleQR(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	qrID := chi.URLParam(r, "qrId")

	code, err := h.qr.Toggle(r.Context(), qrID, userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, code)
}

// HandleDeleteQR removes one of the user's QR codes.
// DELETE /api/qr/{qrId}
func (h *Handler) HandleDeleteQR(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	qrID := chi.URLParam(r, "qrId")

	if err := h.qr.Delete(r.Context(), qrID, userID); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"message": "QR code deleted"})
}
