// Package store defines the ordered key-value environment the record layer
// runs on. Keys are ordered byte-wise and consumed through scoped
// transactions. bbolt is the default engine; leveldb, pebble and an
// in-memory btree implement the same contract.
package store

import (
	"errors"
	"time"
)

var (
	// ErrUnavailable is returned when an environment cannot be opened or
	// created (bad path, permissions, corruption, incompatible open).
	ErrUnavailable = errors.New("store unavailable")
	// ErrStoreFull is returned when a write scope would grow the store past
	// its configured capacity. The scope is rolled back.
	ErrStoreFull = errors.New("store capacity exceeded")
	// ErrReadOnly is returned when a write scope is requested on a handle
	// opened read-only.
	ErrReadOnly = errors.New("store opened read-only")
	// ErrClosed is returned by operations on a closed handle.
	ErrClosed = errors.New("store closed")
)

// Options controls how an environment is opened.
type Options struct {
	ReadOnly bool
	// Capacity bounds the store size in bytes. Zero means unbounded.
	Capacity int64
	// Timeout bounds how long Open waits for a conflicting process lock.
	// Zero waits forever where the engine supports waiting.
	Timeout time.Duration
}

// Engine opens environments of one storage backend.
type Engine interface {
	Name() string
	Open(path string, opts Options) (Handle, error)
}

// Handle is an open environment. View and Update always release the
// transaction they acquire: Update commits when fn returns nil and rolls
// back otherwise. At most one Update runs at a time per store.
type Handle interface {
	View(fn func(Tx) error) error
	Update(fn func(Tx) error) error
	Close() error
}

// Tx is a read or write transaction. Slices returned by Get are only valid
// until the transaction ends; slices returned by a cursor only until it moves.
type Tx interface {
	// Get returns nil, nil when key is absent.
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	// Delete reports whether key existed.
	Delete(key []byte) (bool, error)
	Cursor() (Cursor, error)
	Writable() bool
}

// Cursor walks entries in key order. Key returns nil when the cursor is not
// positioned on an entry.
type Cursor interface {
	First() bool
	// Seek positions the cursor at the first key >= key.
	Seek(key []byte) bool
	Next() bool
	Key() []byte
	Value() []byte
	Close() error
}
