package leveldb

import (
	"errors"
	"fmt"

	"kvdoc/internal/store"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Name is the engine name used in configuration.
const Name = "leveldb"

// Engine implements store.Engine using goleveldb. An environment is a
// directory. Capacity is not enforced.
type Engine struct{}

// New returns the leveldb engine.
func New() Engine { return Engine{} }

func (Engine) Name() string { return Name }

// Open opens (or creates, unless read-only) a LevelDB database at path.
func (Engine) Open(path string, opts store.Options) (store.Handle, error) {
	db, err := store.RetryOpen(opts.Timeout, func() (*leveldb.DB, error) {
		return leveldb.OpenFile(path, &opt.Options{
			ReadOnly:       opts.ReadOnly,
			ErrorIfMissing: opts.ReadOnly,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open leveldb %q: %w", store.ErrUnavailable, path, err)
	}
	return &Handle{db: db, readOnly: opts.ReadOnly}, nil
}

// Handle is an open LevelDB database. Readers run against a snapshot;
// writers use OpenTransaction, which blocks other writes until it ends.
type Handle struct {
	db       *leveldb.DB
	readOnly bool
}

func (h *Handle) View(fn func(store.Tx) error) error {
	snap, err := h.db.GetSnapshot()
	if err != nil {
		return fmt.Errorf("leveldb snapshot: %w", err)
	}
	defer snap.Release()
	return fn(&snapshotTx{snap: snap})
}

func (h *Handle) Update(fn func(store.Tx) error) error {
	if h.readOnly {
		return store.ErrReadOnly
	}
	tr, err := h.db.OpenTransaction()
	if err != nil {
		return fmt.Errorf("leveldb transaction: %w", err)
	}
	if err := fn(&writeTx{tr: tr}); err != nil {
		tr.Discard()
		return err
	}
	if err := tr.Commit(); err != nil {
		tr.Discard()
		return fmt.Errorf("leveldb commit: %w", err)
	}
	return nil
}

func (h *Handle) Close() error {
	return h.db.Close()
}

type snapshotTx struct {
	snap *leveldb.Snapshot
}

func (t *snapshotTx) Writable() bool { return false }

func (t *snapshotTx) Get(key []byte) ([]byte, error) {
	return get(t.snap.Get(key, nil))
}

func (t *snapshotTx) Put(key, value []byte) error { return store.ErrReadOnly }
func (t *snapshotTx) Delete(key []byte) (bool, error) { return false, store.ErrReadOnly }

func (t *snapshotTx) Cursor() (store.Cursor, error) {
	return &cursor{it: t.snap.NewIterator(nil, nil)}, nil
}

type writeTx struct {
	tr *leveldb.Transaction
}

func (t *writeTx) Writable() bool { return true }

func (t *writeTx) Get(key []byte) ([]byte, error) {
	return get(t.tr.Get(key, nil))
}

func (t *writeTx) Put(key, value []byte) error {
	if err := t.tr.Put(key, value, nil); err != nil {
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

func (t *writeTx) Delete(key []byte) (bool, error) {
	ok, err := t.tr.Has(key, nil)
	if err != nil || !ok {
		return false, err
	}
	if err := t.tr.Delete(key, nil); err != nil {
		return false, fmt.Errorf("leveldb delete: %w", err)
	}
	return true, nil
}

func (t *writeTx) Cursor() (store.Cursor, error) {
	return &cursor{it: t.tr.NewIterator(nil, nil)}, nil
}

func get(v []byte, err error) ([]byte, error) {
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

type cursor struct {
	it    iterator.Iterator
	valid bool
}

func (c *cursor) First() bool {
	c.valid = c.it.First()
	return c.valid
}

func (c *cursor) Seek(key []byte) bool {
	c.valid = c.it.Seek(key)
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
	c.it.Release()
	return c.it.Error()
}
