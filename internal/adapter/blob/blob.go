// Package blob stores compressed waveform payloads in BadgerDB, keyed by the
// hex SHA-256 of their content.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

const keyPrefix = "blob:"

// Store is a content-addressed domain.BlobStore.
type Store struct {
	db   *badger.DB
	owns bool
}

// Open opens (or creates) a BadgerDB directory at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open blob store %s: %w", path, err)
	}
	return &Store{db: db, owns: true}, nil
}

// New wraps an already open database. Close leaves db open.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close releases the database if Open created it.
func (s *Store) Close() error {
	if s.owns {
		return s.db.Close()
	}
	return nil
}

// ID returns the content address of data.
func ID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores data under its content address. Storing identical content twice
// is a no-op that returns the same id.
func (s *Store) Put(_ context.Context, data []byte) (string, error) {
	id := ID(data)
	key := []byte(keyPrefix + id)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return "", fmt.Errorf("put blob %s: %w", id, err)
	}
	return id, nil
}

func (s *Store) Get(_ context.Context, id string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrBlobNotFound
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", id, err)
	}
	return out, nil
}

// Delete removes a blob. Deleting a missing id succeeds.
func (s *Store) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + id))
	})
	if err != nil {
		return fmt.Errorf("delete blob %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored blobs.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
