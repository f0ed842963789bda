// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package services

import (
	"context"
)

// ContextHub matches the signaling hub's RunWithContext method without
// importing the eventbus package.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// SignalingHubService wraps the signaling hub as a supervised service. The
// hub's RunWithContext already implements the suture.Service pattern, so
// this wrapper delegates and provides a name for logging.
type SignalingHubService struct {
	hub  ContextHub
	name string
}

// NewSignalingHubService creates a new signaling hub service wrapper.
func NewSignalingHubService(hub ContextHub) *SignalingHubService {
	return &SignalingHubService{
		hub:  hub,
		name: "signaling-hub",
	}
}

// Serve implements suture.Service.
func (s *SignalingHubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (s *SignalingHubService) String() string {
	return s.name
}
