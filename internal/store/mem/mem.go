package mem

import (
	"bytes"
	"fmt"
	"sync"

	"kvdoc/internal/store"

	"github.com/google/btree"
)

// Name is the engine name used in configuration.
const Name = "mem"

const degree = 32

type item struct {
	key   []byte
	value []byte
}

func less(a, b item) bool { return bytes.Compare(a.key, b.key) < 0 }

// Engine implements store.Engine with in-process btrees. Each path names an
// independent store that lives as long as the Engine. Useful for tests and
// for servers that do not need durability.
type Engine struct {
	mu     sync.Mutex
	stores map[string]*memStore
}

// New returns an empty in-memory engine.
func New() *Engine {
	return &Engine{stores: make(map[string]*memStore)}
}

func (e *Engine) Name() string { return Name }

// Open returns a handle on the store at path, creating it for read-write
// opens. Read-only opens of an unknown path fail with store.ErrUnavailable.
func (e *Engine) Open(path string, opts store.Options) (store.Handle, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", store.ErrUnavailable)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.stores[path]
	if !ok {
		if opts.ReadOnly {
			return nil, fmt.Errorf("%w: no store at %q", store.ErrUnavailable, path)
		}
		s = &memStore{tree: btree.NewG(degree, less)}
		e.stores[path] = s
	}
	return &Handle{s: s, readOnly: opts.ReadOnly, capacity: opts.Capacity}, nil
}

// memStore publishes a new tree on every commit. Readers clone the current
// tree; btree clones are copy-on-write, so a clone is a stable snapshot.
type memStore struct {
	writeMu sync.Mutex

	mu   sync.Mutex // guards tree and size; Clone mutates the source's cow marker
	tree *btree.BTreeG[item]
	size int64
}

func (s *memStore) snapshot() (*btree.BTreeG[item], int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Clone(), s.size
}

// Handle is an open in-memory store.
type Handle struct {
	s        *memStore
	readOnly bool
	capacity int64

	closeMu sync.RWMutex
	closed  bool
}

func (h *Handle) View(fn func(store.Tx) error) error {
	h.closeMu.RLock()
	defer h.closeMu.RUnlock()
	if h.closed {
		return store.ErrClosed
	}
	tree, _ := h.s.snapshot()
	return fn(&txn{tree: tree})
}

func (h *Handle) Update(fn func(store.Tx) error) error {
	if h.readOnly {
		return store.ErrReadOnly
	}
	h.closeMu.RLock()
	defer h.closeMu.RUnlock()
	if h.closed {
		return store.ErrClosed
	}

	h.s.writeMu.Lock()
	defer h.s.writeMu.Unlock()

	tree, size := h.s.snapshot()
	t := &txn{tree: tree, writable: true, size: size}
	if err := fn(t); err != nil {
		return err
	}
	if h.capacity > 0 && t.size > h.capacity {
		return fmt.Errorf("%w: %d bytes over a %d byte limit", store.ErrStoreFull, t.size, h.capacity)
	}

	h.s.mu.Lock()
	h.s.tree = t.tree
	h.s.size = t.size
	h.s.mu.Unlock()
	return nil
}

func (h *Handle) Close() error {
	h.closeMu.Lock()
	defer h.closeMu.Unlock()
	h.closed = true
	return nil
}

type txn struct {
	tree     *btree.BTreeG[item]
	writable bool
	size     int64
}

func (t *txn) Writable() bool { return t.writable }

func (t *txn) Get(key []byte) ([]byte, error) {
	it, ok := t.tree.Get(item{key: key})
	if !ok {
		return nil, nil
	}
	return it.value, nil
}

func (t *txn) Put(key, value []byte) error {
	if !t.writable {
		return store.ErrReadOnly
	}
	it := item{key: bytes.Clone(key), value: bytes.Clone(value)}
	if it.value == nil {
		it.value = []byte{}
	}
	if old, ok := t.tree.ReplaceOrInsert(it); ok {
		t.size -= int64(len(old.key) + len(old.value))
	}
	t.size += int64(len(it.key) + len(it.value))
	return nil
}

func (t *txn) Delete(key []byte) (bool, error) {
	if !t.writable {
		return false, store.ErrReadOnly
	}
	old, ok := t.tree.Delete(item{key: key})
	if ok {
		t.size -= int64(len(old.key) + len(old.value))
	}
	return ok, nil
}

func (t *txn) Cursor() (store.Cursor, error) {
	return &cursor{tree: t.tree}, nil
}

// cursor re-descends the tree on every move. Each step is O(log n).
type cursor struct {
	tree *btree.BTreeG[item]
	cur  *item
}

func (c *cursor) First() bool {
	it, ok := c.tree.Min()
	return c.set(it, ok)
}

func (c *cursor) Seek(key []byte) bool {
	var found item
	var ok bool
	c.tree.AscendGreaterOrEqual(item{key: key}, func(it item) bool {
		found, ok = it, true
		return false
	})
	return c.set(found, ok)
}

func (c *cursor) Next() bool {
	if c.cur == nil {
		return false
	}
	from := c.cur.key
	var found item
	var ok bool
	c.tree.AscendGreaterOrEqual(item{key: from}, func(it item) bool {
		if bytes.Equal(it.key, from) {
			return true
		}
		found, ok = it, true
		return false
	})
	return c.set(found, ok)
}

func (c *cursor) set(it item, ok bool) bool {
	if !ok {
		c.cur = nil
		return false
	}
	c.cur = &it
	return true
}

func (c *cursor) Key() []byte {
	if c.cur == nil {
		return nil
	}
	return c.cur.key
}

func (c *cursor) Value() []byte {
	if c.cur == nil {
		return nil
	}
	return c.cur.value
}

func (c *cursor) Close() error { return nil }
