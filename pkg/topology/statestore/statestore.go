// Package statestore persists, across process restarts, a hash of the
// config each component was last built from. A reload generation swap
// within one process already knows what changed (it just rebuilt
// everything); this store answers the same question across a crash or
// restart, when the scheduler has no generation in memory to compare
// against.
package statestore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var bucketComponents = []byte("components")

// Store is a bbolt-backed (component id -> config hash) ledger under
// data_dir/state.db.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the store at dataDir/state.db, creating the
// bucket if it doesn't already exist.
func Open(dataDir string) (*Store, error) {
	path := filepath.Join(dataDir, "state.db")
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("statestore: open %q: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketComponents)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("statestore: init bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// HashConfig returns a stable hash of an arbitrary component config
// value (the decoded Params map, typically), suitable for comparison
// across restarts regardless of map key ordering — json.Marshal sorts
// map keys, so two structurally equal configs always hash equal.
func HashConfig(cfg any) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("statestore: hash config: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Get returns the last-recorded config hash for a component id, and
// whether one was recorded at all (false on first run after a fresh
// data_dir).
func (s *Store) Get(componentID string) (string, bool, error) {
	var hash string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComponents)
		v := b.Get([]byte(componentID))
		if v == nil {
			return nil
		}
		found = true
		hash = string(v)
		return nil
	})
	return hash, found, err
}

// Set records the config hash currently in effect for a component id.
func (s *Store) Set(componentID, hash string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComponents)
		return b.Put([]byte(componentID), []byte(hash))
	})
}

// Changed reports whether a component's newly computed config hash
// differs from what's on record, recording the new hash either way.
// After a restart it tells a caller which components resume under
// unchanged config and which pick up a new one; the topology runtime and
// the flowd subcommands do not call it.
func (s *Store) Changed(componentID string, newHash string) (bool, error) {
	prev, found, err := s.Get(componentID)
	if err != nil {
		return false, err
	}
	if err := s.Set(componentID, newHash); err != nil {
		return false, err
	}
	return !found || prev != newHash, nil
}

// Delete removes a component's recorded hash, for a component dropped
// from the topology on reload.
func (s *Store) Delete(componentID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComponents)
		return b.Delete([]byte(componentID))
	})
}
