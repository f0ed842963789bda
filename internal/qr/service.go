// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

// Package qr manages the lifecycle of callable QR codes: generation, lookup
// during a scan, activation toggling, and deletion.
package qr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/tomtom215/qrcall/internal/logging"
	"github.com/tomtom215/qrcall/internal/metrics"
	"github.com/tomtom215/qrcall/internal/models"
	"github.com/tomtom215/qrcall/internal/store"
)

var (
	// ErrNotFound indicates the QR code does not exist or has been
	// deactivated. Deactivated codes are indistinguishable from missing
	// ones to scanners.
	ErrNotFound = errors.New("qr: code not found")

	// ErrExpired indicates the QR code exists but is past its expiry
	// time. Scans against it must not start calls.
	ErrExpired = errors.New("qr: code expired")

	// ErrForbidden indicates the caller does not own the QR code.
	ErrForbidden = errors.New("qr: not the owner")
)

// maxOwnerCodes caps how many codes one owner can list in a single call.
const maxOwnerCodes = 50

// pngSize is the pixel width of generated QR images.
const pngSize = 256

// Service implements QR code operations over the document store.
type Service struct {
	store     *store.Store
	publicURL string
}

// NewService creates a QR Service. publicURL is the externally visible base
// URL embedded in generated QR payloads.
func NewService(st *store.Store, publicURL string) *Service {
	return &Service{store: st, publicURL: publicURL}
}

// Generated is the result of generating a new QR code: the stored record
// plus the rendered image and the URL it encodes.
type Generated struct {
	Code     *models.QRCode `json:"qrCode"`
	URL      string         `json:"url"`
	ImageURI string         `json:"qrImage"`
}

// Generate creates a new active QR code owned by ownerID and renders its
// PNG as a data URI. expiresAt of nil means the code never expires.
func (s *Service) Generate(ctx context.Context, ownerID, name string, expiresAt *time.Time) (*Generated, error) {
	now := time.Now().UTC()
	code := &models.QRCode{
		QRID:      uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		IsActive:  true,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	url := s.publicURL + "/call?qr=" + code.QRID
	png, err := qrcode.Encode(url, qrcode.Medium, pngSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr image: %w", err)
	}

	if err := s.store.CreateQRCode(ctx, code); err != nil {
		return nil, fmt.Errorf("persist qr code: %w", err)
	}

	logging.Info().
		Str("qr_id", code.QRID).
		Str("owner_id", ownerID).
		Msg("QR code generated")

	return &Generated{
		Code:     code,
		URL:      url,
		ImageURI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Get fetches a QR code and checks it is usable for starting a call.
// Inactive codes yield ErrNotFound, past-expiry codes ErrExpired.
func (s *Service) Get(ctx context.Context, qrID string) (*models.QRCode, error) {
	code, err := s.store.GetQRCode(ctx, qrID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !code.IsActive {
		return nil, ErrNotFound
	}
	if code.Expired(time.Now().UTC()) {
		return nil, ErrExpired
	}
	return code, nil
}

// ListByOwner returns the owner's QR codes, newest first, capped at 50.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*models.QRCode, error) {
	return s.store.ListQRCodesByOwner(ctx, ownerID, maxOwnerCodes)
}

// Toggle flips the active flag on a QR code owned by ownerID.
func (s *Service) Toggle(ctx context.Context, qrID, ownerID string) (*models.QRCode, error) {
	code, err := s.store.UpdateQRCode(ctx, qrID, func(qr *models.QRCode) error {
		if qr.OwnerID != ownerID {
			return ErrForbidden
		}
		qr.IsActive = !qr.IsActive
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return code, nil
}

// Delete removes a QR code owned by ownerID.
func (s *Service) Delete(ctx context.Context, qrID, ownerID string) error {
	code, err := s.store.GetQRCode(ctx, qrID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if code.OwnerID != ownerID {
		return ErrForbidden
	}
	return s.store.DeleteQRCode(ctx, qrID)
}

// RecordScan bumps the scan counter and last-scanned time. Best-effort: a
// failure here never blocks the call being initiated.
func (s *Service) RecordScan(ctx context.Context, qrID string) {
	now := time.Now().UTC()
	_, err := s.store.UpdateQRCode(ctx, qrID, func(qr *models.QRCode) error {
		qr.ScanCount++
		qr.LastScanned = &now
		return nil
	})
	if err != nil {
		logging.Warn().Err(err).Str("qr_id", qrID).Msg("failed to record QR scan")
		return
	}
	metrics.QRScans.Inc()
}
