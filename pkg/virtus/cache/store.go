package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/dgraph-io/badger/v4"

	"github.com/virtuscloud/virtus/pkg/virtus/archive"
	"github.com/virtuscloud/virtus/pkg/virtus/logging"
)

// ErrNotFound is returned when no usable entry exists for a digest.
var ErrNotFound = errors.New("cache entry not found")

// Store wraps Badger for inspection caching. It implements archive.Cache.
type Store struct {
	db   *badger.DB
	path string
}

var _ archive.Cache = (*Store)(nil)

// DefaultPath returns $XDG_CACHE_HOME/virtus/inspections.
func DefaultPath() string {
	return filepath.Join(xdg.CacheHome, "virtus", "inspections")
}

// Open opens or creates a store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the directory backing the store.
func (s *Store) Path() string { return s.path }

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached result for digest. Entries from another
// CacheVersion are reported as ErrNotFound.
func (s *Store) Get(digest string) (*archive.Result, error) {
	var entry Entry

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(MakeKey(digest))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(entry.Decode)
	})
	if err != nil {
		return nil, err
	}

	if entry.Version != CacheVersion {
		logging.Get("cache").Debug("ignoring stale cache entry", "digest", digest, "version", entry.Version)
		return nil, ErrNotFound
	}

	return entry.Result(digest), nil
}

// Put stores r under digest.
func (s *Store) Put(digest string, r *archive.Result) error {
	value, err := NewEntry(r).Encode()
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(MakeKey(digest), value)
	})
}

// Delete removes the entry for digest, if any.
func (s *Store) Delete(digest string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(MakeKey(digest))
	})
}

// Count returns the number of cached inspections.
func (s *Store) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Clear removes every cached inspection.
func (s *Store) Clear() error {
	return s.db.DropPrefix([]byte(keyPrefix))
}
