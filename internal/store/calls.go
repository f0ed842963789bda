// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/qrcall/internal/models"
)

// CreateCall persists a new call record and its participant index entries.
func (s *Store) CreateCall(ctx context.Context, call *models.Call) error {
	return s.update(func(txn *badger.Txn) error {
		if err := setJSON(txn, callKeyPrefix+call.CallID, call); err != nil {
			return err
		}
		// Receiver index always exists; caller index only for attributed calls.
		rk := callUserIndexPrefix + call.ReceiverID + ":" + call.CallID
		if err := txn.Set([]byte(rk), []byte(call.CallID)); err != nil {
			return fmt.Errorf("set receiver index: %w", err)
		}
		if call.CallerID != "" {
			ck := callUserIndexPrefix + call.CallerID + ":" + call.CallID
			if err := txn.Set([]byte(ck), []byte(call.CallID)); err != nil {
				return fmt.Errorf("set caller index: %w", err)
			}
		}
		return nil
	})
}

// GetCall fetches a call by identifier.
func (s *Store) GetCall(ctx context.Context, callID string) (*models.Call, error) {
	var call models.Call
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, callKeyPrefix+callID, &call)
	})
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// UpdateCall applies mutate to the persisted call inside one transaction.
// The read, mutation, and write commit atomically; concurrent transitions on
// the same call serialize through Badger's conflict detection, so the loser
// of a race re-reads the winner's state and the mutate func can reject it.
// Errors returned by mutate abort the update and propagate unchanged.
func (s *Store) UpdateCall(ctx context.Context, callID string, mutate func(*models.Call) error) (*models.Call, error) {
	var updated models.Call
	err := s.update(func(txn *badger.Txn) error {
		var call models.Call
		if err := getJSON(txn, callKeyPrefix+callID, &call); err != nil {
			return err
		}
		if err := mutate(&call); err != nil {
			return err
		}
		call.UpdatedAt = time.Now().UTC()
		if err := setJSON(txn, callKeyPrefix+callID, &call); err != nil {
			return err
		}
		updated = call
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListCallsByParticipant returns all calls where the user is caller or
// receiver, newest first.
func (s *Store) ListCallsByParticipant(ctx context.Context, userID string) ([]*models.Call, error) {
	var calls []*models.Call
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := scanIndex(txn, callUserIndexPrefix+userID+":")
		if err != nil {
			return err
		}
		for _, id := range ids {
			var call models.Call
			if err := getJSON(txn, callKeyPrefix+id, &call); err != nil {
				// Index may outlive a record lost to corruption; skip.
				continue
			}
			calls = append(calls, &call)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list calls for %s: %w", userID, err)
	}
	sort.Slice(calls, func(i, j int) bool {
		return calls[i].CreatedAt.After(calls[j].CreatedAt)
	})
	return calls, nil
}

// CountCallsByParticipant returns the number of calls involving the user.
func (s *Store) CountCallsByParticipant(ctx context.Context, userID string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(callUserIndexPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// ListStaleInitiatedCalls returns calls still in the initiated state whose
// start time is before the cutoff. Used by the missed-call sweeper.
func (s *Store) ListStaleInitiatedCalls(ctx context.Context, cutoff time.Time) ([]*models.Call, error) {
	var stale []*models.Call
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(callKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var call models.Call
			err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, &call)
			})
			if err != nil {
				continue
			}
			if call.Status == models.StatusInitiated && call.StartTime.Before(cutoff) {
				c := call
				stale = append(stale, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan stale calls: %w", err)
	}
	return stale, nil
}
