// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package models

// DispatchStatus classifies the outcome of a best-effort push dispatch.
type DispatchStatus string

const (
	// DispatchOK means the payload reached the gateway (or mock mode
	// accepted it) for every addressed device.
	DispatchOK DispatchStatus = "ok"

	// DispatchDegraded means delivery was partially or fully unsuccessful.
	// Degraded dispatches are logged and counted but never fail the
	// operation that triggered them.
	DispatchDegraded DispatchStatus = "degraded"
)

// DispatchResult reports the outcome of a push notification dispatch.
// Callers inspect Status rather than an error: notification failure is an
// expected, non-fatal condition by contract.
type DispatchResult struct {
	Status DispatchStatus `json:"status"`
	Sent   int            `json:"sent"`
	Reason string         `json:"reason,omitempty"`
}

// Degraded builds a degraded dispatch result carrying the reason.
func Degraded(reason string) DispatchResult {
	return DispatchResult{Status: DispatchDegraded, Reason: reason}
}

// IsDegraded reports whether the dispatch did not fully succeed.
func (r DispatchResult) IsDegraded() bool {
	return r.Status == DispatchDegraded
}

// PushPayload is the notification content handed to the dispatcher.
type PushPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}
