// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/qrcall/internal/models"
	"github.com/tomtom215/qrcall/internal/validation"
)

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LogoutRequest optionally names the device token to forget.
type LogoutRequest struct {
	DeviceToken string `json:"deviceToken" validate:"omitempty,max=512"`
}

// UpdateProfileRequest changes mutable profile fields.
type UpdateProfileRequest struct {
	Name   string `json:"name" validate:"omitempty,max=100"`
	Phone  string `json:"phone" validate:"omitempty,max=32"`
	Avatar string `json:"avatar" validate:"omitempty,max=1024"`
}

// DeviceTokenRequest registers a push device token.
type DeviceTokenRequest struct {
	DeviceToken string `json:"deviceToken" validate:"required,max=512"`
}

// ChangePasswordRequest rotates the account password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

// GenerateQRRequest creates a new callable QR code.
type GenerateQRRequest struct {
	Name      string     `json:"name" validate:"omitempty,max=100"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// InitiateCallRequest starts a call against a scanned QR code.
type InitiateCallRequest struct {
	QRID       string             `json:"qrId" validate:"required,max=128"`
	CallType   models.CallType    `json:"callType" validate:"omitempty,oneof=audio video"`
	CallerInfo *models.CallerInfo `json:"callerInfo,omitempty"`
}

// EndCallRequest terminates a call. CallerUID identifies anonymous callers;
// authenticated participants are identified by their session. Duration is
// the client-reported call length in seconds.
type EndCallRequest struct {
	CallerUID string `json:"callerUid" validate:"omitempty,max=64"`
	Duration  int64  `json:"duration" validate:"omitempty,min=0"`
}

// SendNotificationRequest pushes a notification to another user's devices.
type SendNotificationRequest struct {
	UserID string            `json:"userId" validate:"required,max=64"`
	Title  string            `json:"title" validate:"required,max=200"`
	Body   string            `json:"body" validate:"required,max=1000"`
	Data   map[string]string `json:"data" validate:"omitempty,max=20"`
}

// TestNotificationRequest pushes a notification to the caller's own devices.
type TestNotificationRequest struct {
	Title string            `json:"title" validate:"omitempty,max=200"`
	Body  string            `json:"body" validate:"omitempty,max=1000"`
	Data  map[string]string `json:"data" validate:"omitempty,max=20"`
}

// RTCTokenRequest requests a fresh channel token for an ongoing call.
type RTCTokenRequest struct {
	ChannelName string `json:"channelName" validate:"required,max=128"`
	UID         string `json:"uid" validate:"required,max=64"`
	Role        string `json:"role" validate:"omitempty,oneof=publisher subscriber"`
}

// validateRequest validates a struct and writes the VALIDATION_ERROR
// response on failure. Returns true when the request is valid.
func validateRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return true
	}
	apiErr := validationErr.ToAPIError()
	respondJSON(w, http.StatusBadRequest, &APIResponse{
		Success: false,
		Error: &APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
		Meta: &Meta{Timestamp: time.Now().UTC()},
	})
	return false
}
