// Package storetest holds the behavior every store.Engine must share. Engine
// packages call Run from their tests.
package storetest

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"kvdoc/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an engine and a fresh path for one store. Each call must
// return a path no other call has used.
type Factory func(t *testing.T) (store.Engine, string)

// Run exercises eng against the store contract.
func Run(t *testing.T, mk Factory) {
	t.Run("ReadOnlyMissing", func(t *testing.T) { testReadOnlyMissing(t, mk) })
	t.Run("PutGet", func(t *testing.T) { testPutGet(t, mk) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, mk) })
	t.Run("CursorOrder", func(t *testing.T) { testCursorOrder(t, mk) })
	t.Run("Seek", func(t *testing.T) { testSeek(t, mk) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, mk) })
	t.Run("ReadOnlyHandle", func(t *testing.T) { testReadOnlyHandle(t, mk) })
	t.Run("Reopen", func(t *testing.T) { testReopen(t, mk) })
	t.Run("ReadYourWrites", func(t *testing.T) { testReadYourWrites(t, mk) })
	t.Run("ConcurrentUpdates", func(t *testing.T) { testConcurrentUpdates(t, mk) })
}

func open(t *testing.T, eng store.Engine, path string, readOnly bool) store.Handle {
	t.Helper()
	h, err := eng.Open(path, store.Options{ReadOnly: readOnly})
	require.NoError(t, err)
	return h
}

func put(t *testing.T, h store.Handle, kv ...string) {
	t.Helper()
	require.Zero(t, len(kv)%2, "put needs key/value pairs")
	require.NoError(t, h.Update(func(tx store.Tx) error {
		for i := 0; i < len(kv); i += 2 {
			if err := tx.Put([]byte(kv[i]), []byte(kv[i+1])); err != nil {
				return err
			}
		}
		return nil
	}))
}

func get(t *testing.T, h store.Handle, key string) []byte {
	t.Helper()
	var out []byte
	require.NoError(t, h.View(func(tx store.Tx) error {
		v, err := tx.Get([]byte(key))
		if v != nil {
			out = append([]byte{}, v...)
		}
		return err
	}))
	return out
}

func keys(t *testing.T, h store.Handle) []string {
	t.Helper()
	var out []string
	require.NoError(t, h.View(func(tx store.Tx) error {
		c, err := tx.Cursor()
		if err != nil {
			return err
		}
		defer c.Close()
		for ok := c.First(); ok; ok = c.Next() {
			out = append(out, string(c.Key()))
		}
		return nil
	}))
	return out
}

func testReadOnlyMissing(t *testing.T, mk Factory) {
	eng, path := mk(t)
	_, err := eng.Open(path, store.Options{ReadOnly: true})
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func testPutGet(t *testing.T, mk Factory) {
	eng, path := mk(t)
	h := open(t, eng, path, false)
	defer h.Close()

	assert.Nil(t, get(t, h, "a"))
	put(t, h, "a", "1", "b", "{}")
	assert.Equal(t, []byte("1"), get(t, h, "a"))
	assert.Equal(t, []byte("{}"), get(t, h, "b"))
	assert.Nil(t, get(t, h, "c"))
	put(t, h, "a", "2")
	assert.Equal(t, []byte("2"), get(t, h, "a"))
}

func testDelete(t *testing.T, mk Factory) {
	eng, path := mk(t)
	h := open(t, eng, path, false)
	defer h.Close()

	put(t, h, "a", "1")
	require.NoError(t, h.Update(func(tx store.Tx) error {
		ok, err := tx.Delete([]byte("a"))
		assert.True(t, ok)
		if err != nil {
			return err
		}
		ok, err = tx.Delete([]byte("a"))
		assert.False(t, ok, "second delete reports absence")
		return err
	}))
	assert.Nil(t, get(t, h, "a"))
}

func testCursorOrder(t *testing.T, mk Factory) {
	eng, path := mk(t)
	h := open(t, eng, path, false)
	defer h.Close()

	assert.Empty(t, keys(t, h))
	put(t, h, "b", "1", "a:2", "1", "a:10", "1", "\xc3\xa9", "1", "A", "1")
	assert.Equal(t, []string{"A", "a:10", "a:2", "b", "\xc3\xa9"}, keys(t, h))
}

func testSeek(t *testing.T, mk Factory) {
	eng, path := mk(t)
	h := open(t, eng, path, false)
	defer h.Close()
	put(t, h, "k1", "v1", "k3", "v3", "k5", "v5")

	require.NoError(t, h.View(func(tx store.Tx) error {
		c, err := tx.Cursor()
		if err != nil {
			return err
		}
		defer c.Close()

		assert.Nil(t, c.Key(), "unpositioned cursor has no key")
		require.True(t, c.Seek([]byte("k3")))
		assert.Equal(t, "k3", string(c.Key()))
		assert.Equal(t, "v3", string(c.Value()))
		require.True(t, c.Seek([]byte("k4")))
		assert.Equal(t, "k5", string(c.Key()))
		assert.False(t, c.Next())
		assert.Nil(t, c.Key())
		assert.False(t, c.Seek([]byte("k6")))
		require.True(t, c.Seek([]byte("")))
		assert.Equal(t, "k1", string(c.Key()))
		return nil
	}))
}

func testRollback(t *testing.T, mk Factory) {
	eng, path := mk(t)
	h := open(t, eng, path, false)
	defer h.Close()
	put(t, h, "keep", "1")

	boom := errors.New("boom")
	err := h.Update(func(tx store.Tx) error {
		if err := tx.Put([]byte("lost"), []byte("x")); err != nil {
			return err
		}
		if _, err := tx.Delete([]byte("keep")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, get(t, h, "lost"))
	assert.Equal(t, []byte("1"), get(t, h, "keep"))
}

func testReadOnlyHandle(t *testing.T, mk Factory) {
	eng, path := mk(t)
	rw := open(t, eng, path, false)
	put(t, rw, "a", "1")
	require.NoError(t, rw.Close())

	ro := open(t, eng, path, true)
	defer ro.Close()
	assert.Equal(t, []byte("1"), get(t, ro, "a"))
	err := ro.Update(func(tx store.Tx) error { return nil })
	assert.ErrorIs(t, err, store.ErrReadOnly)
	require.NoError(t, ro.View(func(tx store.Tx) error {
		assert.False(t, tx.Writable())
		return nil
	}))
}

func testReopen(t *testing.T, mk Factory) {
	eng, path := mk(t)
	h := open(t, eng, path, false)
	put(t, h, "durable", "yes")
	require.NoError(t, h.Close())

	h = open(t, eng, path, false)
	defer h.Close()
	assert.Equal(t, []byte("yes"), get(t, h, "durable"))
}

func testReadYourWrites(t *testing.T, mk Factory) {
	eng, path := mk(t)
	h := open(t, eng, path, false)
	defer h.Close()
	put(t, h, "a", "1", "c", "3")

	require.NoError(t, h.Update(func(tx store.Tx) error {
		assert.True(t, tx.Writable())
		if err := tx.Put([]byte("b"), []byte("2")); err != nil {
			return err
		}
		if _, err := tx.Delete([]byte("c")); err != nil {
			return err
		}
		v, err := tx.Get([]byte("b"))
		if err != nil {
			return err
		}
		assert.Equal(t, "2", string(v))

		c, err := tx.Cursor()
		if err != nil {
			return err
		}
		defer c.Close()
		var seen []string
		for ok := c.First(); ok; ok = c.Next() {
			seen = append(seen, string(c.Key()))
		}
		assert.Equal(t, []string{"a", "b"}, seen)
		return nil
	}))
}

func testConcurrentUpdates(t *testing.T, mk Factory) {
	eng, path := mk(t)
	h := open(t, eng, path, false)
	defer h.Close()
	put(t, h, "n", "0")

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.Update(func(tx store.Tx) error {
				v, err := tx.Get([]byte("n"))
				if err != nil {
					return err
				}
				var n int
				if _, err := fmt.Sscan(string(v), &n); err != nil {
					return err
				}
				return tx.Put([]byte("n"), []byte(fmt.Sprint(n+1)))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, fmt.Sprint(workers), string(get(t, h, "n")))
}
