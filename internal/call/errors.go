// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package call

import "errors"

var (
	// ErrNotFound indicates the call or QR code does not exist.
	ErrNotFound = errors.New("call: not found")

	// ErrExpired indicates the scanned QR code is inactive or expired.
	ErrExpired = errors.New("call: qr code expired or inactive")

	// ErrForbidden indicates the user is not a participant in the call or
	// not the one allowed to perform the operation.
	ErrForbidden = errors.New("call: not a participant")

	// ErrInvalidState indicates the call is not in a state that admits the
	// requested transition. The loser of a concurrent answer/reject race
	// observes this error.
	ErrInvalidState = errors.New("call: invalid state for transition")

	// ErrAlreadyTerminal indicates the call already reached a terminal
	// status and cannot transition again.
	ErrAlreadyTerminal = errors.New("call: already in terminal state")
)
