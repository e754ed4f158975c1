// Package store keeps the cell edits made to the data frames of express apps,
// so that they survive re-execution of the app.
package store

import (
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/elves/elvx/pkg/logutil"
)

var logger = logutil.GetLogger("[store] ")

// ErrNoMatchingPatch is returned when a patch with a given sequence number
// does not exist.
var ErrNoMatchingPatch = errors.New("no matching patch")

var initDB = map[string](func(*bolt.Tx) error){}

// Store is a patch store backed by a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	s, err := NewStoreFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreFromDB creates a Store from an open database, initializing the
// buckets it needs.
func NewStoreFromDB(db *bolt.DB) (*Store, error) {
	logger.Println("initializing store")
	defer logger.Println("initialized store")
	err := db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				return fmt.Errorf("failed to %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Store{db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
