package bolt

import (
	"fmt"

	"kvdoc/internal/store"

	bolt "go.etcd.io/bbolt"
)

// Name is the engine name used in configuration.
const Name = "bolt"

var recordsBucket = []byte("records")

// Engine implements store.Engine using bbolt (embedded B+ tree). An
// environment is a single file.
type Engine struct{}

// New returns the bbolt engine.
func New() Engine { return Engine{} }

func (Engine) Name() string { return Name }

// Open creates or opens a bbolt database at path. Read-only opens fail if
// the file does not exist.
func (Engine) Open(path string, opts store.Options) (store.Handle, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{
		ReadOnly: opts.ReadOnly,
		Timeout:  opts.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opening bolt db %s: %w", store.ErrUnavailable, path, err)
	}
	if !opts.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(recordsBucket)
			return err
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: creating bucket: %w", store.ErrUnavailable, err)
		}
	}
	return &Handle{db: db, readOnly: opts.ReadOnly, capacity: opts.Capacity}, nil
}

// Handle is an open bbolt database. bbolt itself serializes writers and
// gives readers an MVCC snapshot.
type Handle struct {
	db       *bolt.DB
	readOnly bool
	capacity int64
}

func (h *Handle) View(fn func(store.Tx) error) error {
	return h.db.View(func(tx *bolt.Tx) error {
		return fn(&txn{tx: tx, bucket: tx.Bucket(recordsBucket)})
	})
}

func (h *Handle) Update(fn func(store.Tx) error) error {
	if h.readOnly {
		return store.ErrReadOnly
	}
	return h.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(recordsBucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		var used int64
		if h.capacity > 0 {
			used = liveBytes(b)
		}
		t := &txn{tx: tx, bucket: b}
		if err := fn(t); err != nil {
			return err
		}
		// The file never shrinks, so the bound is on bytes held by live
		// pages at the start of the scope plus the net change it made.
		if h.capacity > 0 && used+t.delta > h.capacity {
			return fmt.Errorf("%w: %d bytes over a %d byte limit", store.ErrStoreFull, used+t.delta, h.capacity)
		}
		return nil
	})
}

// liveBytes returns the bytes in use by b's committed pages. Freed pages
// are not counted.
func liveBytes(b *bolt.Bucket) int64 {
	st := b.Stats()
	return int64(st.BranchInuse + st.LeafInuse + st.InlineBucketInuse)
}

func (h *Handle) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *Handle) Path() string {
	return h.db.Path()
}

type txn struct {
	tx      *bolt.Tx
	bucket *bolt.Bucket // nil in read-only files that never held records
	// delta is the net change in key and value bytes made by this scope.
	delta int64
}

func (t *txn) Writable() bool { return t.tx.Writable() }

func (t *txn) Get(key []byte) ([]byte, error) {
	if t.bucket == nil {
		return nil, nil
	}
	return t.bucket.Get(key), nil
}

func (t *txn) Put(key, value []byte) error {
	if !t.tx.Writable() {
		return store.ErrReadOnly
	}
	var replaced int64
	if old := t.bucket.Get(key); old != nil {
		replaced = int64(len(key) + len(old))
	}
	if err := t.bucket.Put(key, value); err != nil {
		return fmt.Errorf("bolt put: %w", err)
	}
	t.delta += int64(len(key)+len(value)) - replaced
	return nil
}

func (t *txn) Delete(key []byte) (bool, error) {
	if !t.tx.Writable() {
		return false, store.ErrReadOnly
	}
	old := t.bucket.Get(key)
	if old == nil {
		return false, nil
	}
	removed := int64(len(key) + len(old))
	if err := t.bucket.Delete(key); err != nil {
		return false, fmt.Errorf("bolt delete: %w", err)
	}
	t.delta -= removed
	return true, nil
}

func (t *txn) Cursor() (store.Cursor, error) {
	if t.bucket == nil {
		return &cursor{}, nil
	}
	return &cursor{c: t.bucket.Cursor()}, nil
}

// cursor adapts bolt.Cursor, which returns the entry from each move, to the
// positioned store.Cursor contract.
type cursor struct {
	c   *bolt.Cursor
	key []byte
	val []byte
}

func (c *cursor) set(k, v []byte) bool {
	c.key, c.val = k, v
	return k != nil
}

func (c *cursor) First() bool {
	if c.c == nil {
		return false
	}
	return c.set(c.c.First())
}

func (c *cursor) Seek(key []byte) bool {
	if c.c == nil {
		return false
	}
	return c.set(c.c.Seek(key))
}

func (c *cursor) Next() bool {
	if c.c == nil || c.key == nil {
		return false
	}
	return c.set(c.c.Next())
}

func (c *cursor) Key() []byte   { return c.key }
func (c *cursor) Value() []byte { return c.val }
func (c *cursor) Close() error  { return nil }
