// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

// Package store persists QRCall documents in BadgerDB.
//
// Each entity lives under its own key prefix with JSON values. Secondary
// index keys (call participant, QR owner, user email) point back at primary
// keys so list queries are prefix scans. Badger gives per-document atomicity
// and optimistic transaction conflicts; the store retries conflicting
// read-modify-write updates so concurrent state transitions serialize on the
// record instead of corrupting it.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for BadgerDB storage.
const (
	callKeyPrefix        = "call:"
	callUserIndexPrefix  = "idx:call:user:" // idx:call:user:<userID>:<callID> -> callID
	qrKeyPrefix          = "qr:"
	qrOwnerIndexPrefix   = "idx:qr:owner:" // idx:qr:owner:<ownerID>:<qrID> -> qrID
	userKeyPrefix        = "user:"
	userEmailIndexPrefix = "idx:user:email:" // idx:user:email:<email> -> userID
)

// updateRetries bounds optimistic-conflict retries for read-modify-write
// transactions. Conflicts are rare and resolve on the first retry in practice.
const updateRetries = 5

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrEmailTaken indicates a user with the given email already exists.
	ErrEmailTaken = errors.New("store: email already registered")
)

// Store is a BadgerDB-backed document store for calls, QR codes, and users.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at the given filesystem path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral in-memory store. Used by tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying Badger handle for maintenance tasks.
func (s *Store) DB() *badger.DB {
	return s.db
}

// update runs fn inside a Badger update transaction, retrying on optimistic
// conflicts. Domain errors returned by fn abort without retry.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < updateRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// getJSON fetches and unmarshals the value at key into out.
func getJSON(txn *badger.Txn, key string, out interface{}) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return unmarshal(val, out)
	})
}

// setJSON marshals v and stores it at key.
func setJSON(txn *badger.Txn, key string, v interface{}) error {
	data, err := marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// scanIndex iterates an index prefix and collects the referenced primary IDs.
func scanIndex(txn *badger.Txn, prefix string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			ids = append(ids, string(val))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}
