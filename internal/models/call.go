// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

// Package models defines the core data types shared across QRCall:
// signaling sessions (Call), durable call targets (QRCode), registered
// users, and the push dispatch result type.
package models

import (
	"fmt"
	"time"
)

// CallStatus is the lifecycle state of a signaling session.
type CallStatus string

const (
	StatusInitiated CallStatus = "initiated"
	StatusRinging   CallStatus = "ringing"
	StatusAnswered  CallStatus = "answered"
	StatusEnded     CallStatus = "ended"
	StatusMissed    CallStatus = "missed"
	StatusRejected  CallStatus = "rejected"
)

// IsTerminal reports whether the status is a terminal state. Terminal calls
// are never transitioned again; EndTime and Duration are set exactly once.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case StatusEnded, StatusMissed, StatusRejected:
		return true
	default:
		return false
	}
}

// CallType distinguishes audio-only from audio/video sessions.
type CallType string

const (
	CallTypeAudio CallType = "audio"
	CallTypeVideo CallType = "video"
)

// Valid reports whether the call type is one of the supported values.
func (t CallType) Valid() bool {
	return t == CallTypeAudio || t == CallTypeVideo
}

// CallerKind classifies how an anonymous or known caller reached the system.
type CallerKind string

const (
	CallerKindQRScan     CallerKind = "qr_scan"
	CallerKindRegistered CallerKind = "registered_user"
	CallerKindGuest      CallerKind = "guest"
)

// EndedBy attributes who terminated a call.
type EndedBy string

const (
	EndedByCaller   EndedBy = "caller"
	EndedByReceiver EndedBy = "receiver"
	EndedBySystem   EndedBy = "system"
	EndedByTimeout  EndedBy = "timeout"
)

// EndedBySystemActor is the acting identity used by internal components
// (admin tooling, shutdown cleanup) when terminating a call on behalf of
// neither participant.
const EndedBySystemActor = "system"

// CallerInfo is optional self-reported metadata for anonymous callers.
// It is a structured type with named optional fields rather than an open map
// so handlers can validate it.
type CallerInfo struct {
	Name           string     `json:"name,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Location       string     `json:"location,omitempty"`
	Kind           CallerKind `json:"type,omitempty"`
	AdditionalInfo string     `json:"additionalInfo,omitempty"`
}

// DefaultAnonymousCallerInfo is the caller metadata recorded when an
// anonymous caller provides none.
func DefaultAnonymousCallerInfo() *CallerInfo {
	return &CallerInfo{Name: "Anonymous Caller", Kind: CallerKindQRScan}
}

// Call is one signaling session between a caller and a QR code owner.
//
// A Call is created by the lifecycle coordinator and never deleted, only
// transitioned to a terminal state. CallerID is empty for anonymous callers;
// CallerInfo then carries whatever the caller self-reported.
type Call struct {
	CallID      string     `json:"callId"`
	CallerID    string     `json:"callerId,omitempty"`
	ReceiverID  string     `json:"receiverId"`
	QRCodeID    string     `json:"qrCodeId"`
	ChannelName string     `json:"channelName"`
	CallType    CallType   `json:"callType"`
	Status      CallStatus `json:"status"`

	CallerInfo    *CallerInfo `json:"callerInfo,omitempty"`
	AnonymousCall bool        `json:"anonymousCall"`

	StartTime  time.Time  `json:"startTime"`
	AnsweredAt *time.Time `json:"answeredAt,omitempty"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Duration   int64      `json:"duration"`
	EndedBy    EndedBy    `json:"endedBy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChannelNameFor derives the media channel name for a call identifier.
// The mapping is deterministic: every participant computes the same channel
// from the call ID alone.
func ChannelNameFor(callID string) string {
	return "call_" + callID
}

// CallerUIDFor derives the media participant identity for the anonymous
// caller of a call.
func CallerUIDFor(callID string) string {
	if len(callID) < 8 {
		return "anonymous_" + callID
	}
	return "anonymous_" + callID[:8]
}

// ReceiverUIDFor derives the media participant identity for a receiver.
func ReceiverUIDFor(userID string) string {
	return "user_" + userID
}

// PublicProfile is the subset of a user's profile exposed to call
// participants. Unknown or anonymous participants render as placeholders.
type PublicProfile struct {
	UserID      string `json:"userId,omitempty"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	IsAnonymous bool   `json:"isAnonymous,omitempty"`
}

// UnknownProfile is the placeholder for participants with no stored profile.
func UnknownProfile() PublicProfile {
	return PublicProfile{Name: "Unknown", Avatar: ""}
}

// AnonymousProfile builds the display profile for an anonymous caller from
// its self-reported metadata.
func AnonymousProfile(info *CallerInfo) PublicProfile {
	name := "Anonymous Caller"
	if info != nil && info.Name != "" {
		name = info.Name
	}
	return PublicProfile{Name: name, Avatar: "", IsAnonymous: true}
}

func (c *Call) String() string {
	return fmt.Sprintf("call %s [%s] %s -> %s", c.CallID, c.Status, c.CallerID, c.ReceiverID)
}
