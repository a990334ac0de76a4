// Package kv wraps an embedded Pebble database with the few primitives the
// Pebble-backed repositories need: point reads and writes, atomic batches and
// ordered prefix scans.
package kv

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/dmitrijs2005/any2json/internal/filex"
)

// ErrStopScan may be returned from a Scan callback to end iteration early.
var ErrStopScan = errors.New("stop scan")

// Store wraps the Pebble database.
type Store struct {
	db *pebble.DB
}

// Batch collects writes that are committed atomically.
type Batch struct {
	batch *pebble.Batch
}

// Open opens (creating if needed) a Pebble database at path on disk.
func Open(path string) (*Store, error) {
	if err := filex.EnsureDir(path, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return open(path, &pebble.Options{
		Cache:        pebble.NewCache(64 << 20),
		MaxOpenFiles: 500,
	})
}

// OpenInMemory opens a database backed by an in-memory filesystem.
func OpenInMemory() (*Store, error) {
	return open("", &pebble.Options{FS: vfs.NewMem()})
}

func open(path string, opts *pebble.Options) (*Store, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns a copy of the value stored under key, or nil when absent.
func (s *Store) Get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Set writes a single key synchronously.
func (s *Store) Set(key, value []byte) error {
	return s.db.Set(key, value, pebble.Sync)
}

// NewBatch starts a write batch.
func (s *Store) NewBatch() *Batch {
	return &Batch{batch: s.db.NewBatch()}
}

// Set adds a put to the batch.
func (b *Batch) Set(key, value []byte) error {
	return b.batch.Set(key, value, nil)
}

// Delete adds a delete to the batch.
func (b *Batch) Delete(key []byte) error {
	return b.batch.Delete(key, nil)
}

// Commit applies the batch atomically and releases it.
func (b *Batch) Commit() error {
	defer b.batch.Close()
	return b.batch.Commit(pebble.Sync)
}

// Discard releases an uncommitted batch.
func (b *Batch) Discard() {
	_ = b.batch.Close()
}

// Scan calls fn for every key with the given prefix in ascending order.
// Key and value slices are only valid during the callback.
func (s *Store) Scan(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for ok := iter.First(); ok; ok = iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			if errors.Is(err, ErrStopScan) {
				return nil
			}
			return err
		}
	}
	return iter.Error()
}

// First returns copies of the smallest key and its value under prefix.
// ok is false when no key has the prefix.
func (s *Store) First(prefix []byte) (key, value []byte, ok bool, err error) {
	err = s.Scan(prefix, func(k, v []byte) error {
		key = append([]byte(nil), k...)
		value = append([]byte(nil), v...)
		ok = true
		return ErrStopScan
	})
	return key, value, ok, err
}

// prefixUpperBound returns the exclusive upper bound for prefix iteration.
func prefixUpperBound(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
