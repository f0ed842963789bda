// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package models

import "time"

// QRCode is a durable, reusable call target owned by a single user.
//
// A Call holds a non-owning reference to its QR code by identifier only.
// Scan bookkeeping (ScanCount, LastScanned) is updated best-effort on every
// successful call initiation and never by the calling party directly.
type QRCode struct {
	QRID    string `json:"qrId"`
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`

	IsActive  bool       `json:"isActive"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`

	ScanCount   int64      `json:"scanCount"`
	LastScanned *time.Time `json:"lastScanned,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Expired reports whether the code has an expiry in the past relative to now.
func (q *QRCode) Expired(now time.Time) bool {
	return q.ExpiresAt != nil && q.ExpiresAt.Before(now)
}
