package ratingcache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Storage persists encoded cache entries as a flat key/value mapping.
type Storage interface {
	Load(ctx context.Context) (map[string][]byte, error)
	Save(ctx context.Context, entries map[string][]byte) error
	Close() error
}

// BadgerStorage keeps entries in a BadgerDB keyed by "<title>-<year>".
type BadgerStorage struct {
	db *badger.DB
}

// OpenBadgerStorage opens (or creates) a BadgerDB at path. An empty path
// opens an in-memory database.
func OpenBadgerStorage(path string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open rating cache at %q: %w", path, err)
	}
	return &BadgerStorage{db: db}, nil
}

// NewBadgerStorage wraps an already open database.
func NewBadgerStorage(db *badger.DB) *BadgerStorage {
	return &BadgerStorage{db: db}
}

// Load reads every entry.
func (s *BadgerStorage) Load(ctx context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %q: %w", item.Key(), err)
			}
			out[string(item.KeyCopy(nil))] = val
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load rating cache: %w", err)
	}
	return out, nil
}

// Save writes entries in one write batch.
func (s *BadgerStorage) Save(ctx context.Context, entries map[string][]byte) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for k, v := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := wb.Set([]byte(k), v); err != nil {
			return fmt.Errorf("stage %q: %w", k, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush rating cache: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}
