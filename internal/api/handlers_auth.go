// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package api

import (
	"net/http"

	"github.com/tomtom215/qrcall/internal/auth"
)

// HandleRegister creates a new account and returns a signed-in session.
// POST /api/auth/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
		return
	}

	session, err := h.accounts.Register(r.Context(), req.Name, req.Email, req.Password, req.Phone)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, session)
}

// HandleLogin authenticates an account.
// POST /api/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, session)
}

// HandleLogout marks the user offline and optionally forgets one device
// token.
// POST /api/auth/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req LogoutRequest
	if r.ContentLength > 0 {
		if !decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
			return
		}
	}

	if err := h.accounts.Logout(r.Context(), userID, req.DeviceToken); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// HandleProfile returns the authenticated user's account.
// GET /api/auth/profile
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.accounts.Profile(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, user)
}

// HandleUpdateProfile changes mutable profile fields.
// PUT /api/auth/profile
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req UpdateProfileRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), userID, req.Name, req.Phone, req.Avatar)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, user)
}

// HandleDeviceToken registers a push device token for the account.
// POST /api/auth/device-token
func (h *Handler) HandleDeviceToken(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req DeviceTokenRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
		return
	}

	if err := h.accounts.RegisterDeviceToken(r.Context(), userID, req.DeviceToken); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"message": "Device token registered"})
}

// HandleChangePassword rotates the account password.
// POST /api/auth/change-password
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"message": "Password changed"})
}

// HandleVerify confirms the session token is valid and returns the account.
// GET /api/auth/verify
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.accounts.Profile(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user":  user,
	})
}
