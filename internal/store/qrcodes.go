// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/qrcall/internal/models"
)

// CreateQRCode persists a new QR code and its owner index entry.
func (s *Store) CreateQRCode(ctx context.Context, qr *models.QRCode) error {
	return s.update(func(txn *badger.Txn) error {
		if err := setJSON(txn, qrKeyPrefix+qr.QRID, qr); err != nil {
			return err
		}
		ok := qrOwnerIndexPrefix + qr.OwnerID + ":" + qr.QRID
		if err := txn.Set([]byte(ok), []byte(qr.QRID)); err != nil {
			return fmt.Errorf("set owner index: %w", err)
		}
		return nil
	})
}

// GetQRCode fetches a QR code by identifier.
func (s *Store) GetQRCode(ctx context.Context, qrID string) (*models.QRCode, error) {
	var qr models.QRCode
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, qrKeyPrefix+qrID, &qr)
	})
	if err != nil {
		return nil, err
	}
	return &qr, nil
}

// UpdateQRCode applies mutate to the persisted QR code in one transaction.
func (s *Store) UpdateQRCode(ctx context.Context, qrID string, mutate func(*models.QRCode) error) (*models.QRCode, error) {
	var updated models.QRCode
	err := s.update(func(txn *badger.Txn) error {
		var qr models.QRCode
		if err := getJSON(txn, qrKeyPrefix+qrID, &qr); err != nil {
			return err
		}
		if err := mutate(&qr); err != nil {
			return err
		}
		qr.UpdatedAt = time.Now().UTC()
		if err := setJSON(txn, qrKeyPrefix+qrID, &qr); err != nil {
			return err
		}
		updated = qr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteQRCode removes a QR code and its owner index entry.
func (s *Store) DeleteQRCode(ctx context.Context, qrID string) error {
	return s.update(func(txn *badger.Txn) error {
		var qr models.QRCode
		if err := getJSON(txn, qrKeyPrefix+qrID, &qr); err != nil {
			return err
		}
		if err := txn.Delete([]byte(qrKeyPrefix + qrID)); err != nil {
			return fmt.Errorf("delete qr: %w", err)
		}
		ok := qrOwnerIndexPrefix + qr.OwnerID + ":" + qrID
		if err := txn.Delete([]byte(ok)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete owner index: %w", err)
		}
		return nil
	})
}

// ListQRCodesByOwner returns the owner's QR codes, newest first, capped at limit.
func (s *Store) ListQRCodesByOwner(ctx context.Context, ownerID string, limit int) ([]*models.QRCode, error) {
	var codes []*models.QRCode
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := scanIndex(txn, qrOwnerIndexPrefix+ownerID+":")
		if err != nil {
			return err
		}
		for _, id := range ids {
			var qr models.QRCode
			if err := getJSON(txn, qrKeyPrefix+id, &qr); err != nil {
				continue
			}
			codes = append(codes, &qr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list qr codes for %s: %w", ownerID, err)
	}
	sort.Slice(codes, func(i, j int) bool {
		return codes[i].CreatedAt.After(codes[j].CreatedAt)
	})
	if limit > 0 && len(codes) > limit {
		codes = codes[:limit]
	}
	return codes, nil
}
