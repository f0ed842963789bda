// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/qrcall/internal/models"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// userRecord is the storage encoding of a user. models.User hides the
// password hash and device tokens from API JSON, so the record re-tags them
// for persistence; the embedded struct carries everything else.
type userRecord struct {
	*models.User
	PasswordHash string   `json:"passwordHash"`
	DeviceTokens []string `json:"deviceTokens"`
}

func putUser(txn *badger.Txn, user *models.User) error {
	rec := userRecord{User: user, PasswordHash: user.PasswordHash, DeviceTokens: user.DeviceTokens}
	return setJSON(txn, userKeyPrefix+user.UserID, &rec)
}

func readUser(txn *badger.Txn, userID string, user *models.User) error {
	rec := userRecord{User: user}
	if err := getJSON(txn, userKeyPrefix+userID, &rec); err != nil {
		return err
	}
	user.PasswordHash = rec.PasswordHash
	user.DeviceTokens = rec.DeviceTokens
	return nil
}

// CreateUser persists a new user, enforcing email uniqueness through the
// email index key inside the same transaction.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	emailKey := userEmailIndexPrefix + normalizeEmail(user.Email)
	return s.update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(emailKey))
		if err == nil {
			return ErrEmailTaken
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check email index: %w", err)
		}
		if err := putUser(txn, user); err != nil {
			return err
		}
		if err := txn.Set([]byte(emailKey), []byte(user.UserID)); err != nil {
			return fmt.Errorf("set email index: %w", err)
		}
		return nil
	})
}

// GetUser fetches a user by identifier.
func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.View(func(txn *badger.Txn) error {
		return readUser(txn, userID, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail resolves the email index and fetches the user.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userEmailIndexPrefix + normalizeEmail(email)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get email index: %w", err)
		}
		var userID string
		if err := item.Value(func(val []byte) error {
			userID = string(val)
			return nil
		}); err != nil {
			return err
		}
		return readUser(txn, userID, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies mutate to the persisted user in one transaction.
func (s *Store) UpdateUser(ctx context.Context, userID string, mutate func(*models.User) error) (*models.User, error) {
	var updated models.User
	err := s.update(func(txn *badger.Txn) error {
		var user models.User
		if err := readUser(txn, userID, &user); err != nil {
			return err
		}
		if err := mutate(&user); err != nil {
			return err
		}
		user.UpdatedAt = time.Now().UTC()
		if err := putUser(txn, &user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
