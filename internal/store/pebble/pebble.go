package pebble

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"kvdoc/internal/store"

	"github.com/cockroachdb/pebble"
)

// Name is the engine name used in configuration.
const Name = "pebble"

// Engine implements store.Engine using Pebble. An environment is a
// directory. Capacity is not enforced.
type Engine struct{}

// New returns the pebble engine.
func New() Engine { return Engine{} }

func (Engine) Name() string { return Name }

func (Engine) Open(path string, opts store.Options) (store.Handle, error) {
	db, err := store.RetryOpen(opts.Timeout, func() (*pebble.DB, error) {
		return pebble.Open(path, &pebble.Options{
			ReadOnly:         opts.ReadOnly,
			ErrorIfNotExists: opts.ReadOnly,
			MemTableSize:     4 << 20,
			MaxOpenFiles:     64,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open pebble %q: %w", store.ErrUnavailable, path, err)
	}
	return &Handle{db: db, readOnly: opts.ReadOnly}, nil
}

// Handle is an open Pebble database. Pebble has no transactions, so readers
// use a snapshot and writers build an indexed batch while holding writeMu.
type Handle struct {
	db       *pebble.DB
	readOnly bool
	writeMu  sync.Mutex
}

func (h *Handle) View(fn func(store.Tx) error) error {
	snap := h.db.NewSnapshot()
	defer func() { _ = snap.Close() }()
	return fn(&snapshotTx{snap: snap})
}

func (h *Handle) Update(fn func(store.Tx) error) error {
	if h.readOnly {
		return store.ErrReadOnly
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	b := h.db.NewIndexedBatch()
	defer func() { _ = b.Close() }()
	if err := fn(&batchTx{b: b}); err != nil {
		return err
	}
	if b.Empty() {
		return nil
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pebble commit: %w", err)
	}
	return nil
}

func (h *Handle) Close() error {
	return h.db.Close()
}

// reader is the read surface shared by *pebble.Snapshot and *pebble.Batch.
type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

func get(r reader, key []byte) ([]byte, error) {
	v, closer, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get: %w", err)
	}
	defer func() { _ = closer.Close() }()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func newCursor(r reader) (store.Cursor, error) {
	it, err := r.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("pebble iterator: %w", err)
	}
	return &cursor{it: it}, nil
}

type snapshotTx struct {
	snap *pebble.Snapshot
}

func (t *snapshotTx) Writable() bool { return false }

func (t *snapshotTx) Get(key []byte) ([]byte, error) { return get(t.snap, key) }

func (t *snapshotTx) Put(key, value []byte) error { return store.ErrReadOnly }

func (t *snapshotTx) Delete(key []byte) (bool, error) { return false, store.ErrReadOnly }

func (t *snapshotTx) Cursor() (store.Cursor, error) { return newCursor(t.snap) }

type batchTx struct {
	b *pebble.Batch
}

func (t *batchTx) Writable() bool { return true }

func (t *batchTx) Get(key []byte) ([]byte, error) { return get(t.b, key) }

func (t *batchTx) Put(key, value []byte) error {
	if err := t.b.Set(key, value, nil); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

func (t *batchTx) Delete(key []byte) (bool, error) {
	v, err := get(t.b, key)
	if err != nil || v == nil {
		return false, err
	}
	if err := t.b.Delete(key, nil); err != nil {
		return false, fmt.Errorf("pebble delete: %w", err)
	}
	return true, nil
}

func (t *batchTx) Cursor() (store.Cursor, error) { return newCursor(t.b) }

type cursor struct {
	it    *pebble.Iterator
	valid bool
}

func (c *cursor) First() bool {
	c.valid = c.it.First()
	return c.valid
}

func (c *cursor) Seek(key []byte) bool {
	c.valid = c.it.SeekGE(key)
	return c.valid
}

func (c *cursor) Next() bool {
	if !c.valid {
		return false
	}
	c.valid = c.it.Next()
	return c.valid
}

func (c *cursor) Key() []byte {
	if !c.valid {
		return nil
	}
	return c.it.Key()
}

func (c *cursor) Value() []byte {
	if !c.valid {
		return nil
	}
	return c.it.Value()
}

func (c *cursor) Close() error {
	return c.it.Close()
}
