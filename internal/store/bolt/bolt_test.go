package bolt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kvdoc/internal/store"
	"kvdoc/internal/store/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (store.Engine, string) {
		return New(), filepath.Join(t.TempDir(), "test.db")
	})
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	h, err := New().Open(path, store.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := h.(*Handle).Path(); got != path {
		t.Errorf("path %s, want %s", got, path)
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file should exist: %v", err)
	}
}

func TestOpenInvalidPath(t *testing.T) {
	_, err := New().Open("/nonexistent/dir/test.db", store.Options{})
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestLockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	h, err := New().Open(path, store.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	// bbolt stops retrying the flock one retry interval (50ms) early.
	const timeout = 300 * time.Millisecond
	start := time.Now()
	_, err = New().Open(path, store.Options{Timeout: timeout})
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("second writer should time out, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < timeout/2 {
		t.Errorf("open returned after %s, want about %s", elapsed, timeout)
	}
}

func TestCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	h, err := New().Open(path, store.Options{Capacity: 1 << 20})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	small := make([]byte, 1<<10)
	if err := h.Update(func(tx store.Tx) error { return tx.Put([]byte("small"), small) }); err != nil {
		t.Fatalf("write under the limit: %v", err)
	}

	big := make([]byte, 2<<20)
	err = h.Update(func(tx store.Tx) error { return tx.Put([]byte("big"), big) })
	if !errors.Is(err, store.ErrStoreFull) {
		t.Fatalf("expected ErrStoreFull, got %v", err)
	}
	err = h.View(func(tx store.Tx) error {
		v, err := tx.Get([]byte("big"))
		if v != nil {
			t.Error("oversized write was committed")
		}
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCapacityReusesFreedSpace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	h, err := New().Open(path, store.Options{Capacity: 256 << 10})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	value := make([]byte, 1<<10)
	put := func(i int) error {
		return h.Update(func(tx store.Tx) error { return tx.Put([]byte(fmt.Sprintf("k%05d", i)), value) })
	}

	n := 0
	for ; ; n++ {
		err := put(n)
		if errors.Is(err, store.ErrStoreFull) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	// live pages, not the file size, are what the limit bounds
	if n < 160 {
		t.Fatalf("store filled after %d records of 1KiB in 256KiB", n)
	}

	for i := 0; i < n; i++ {
		err := h.Update(func(tx store.Tx) error {
			_, err := tx.Delete([]byte(fmt.Sprintf("k%05d", i)))
			return err
		})
		if err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}
	for i := 0; i < n-1; i++ {
		if err := put(i); err != nil {
			t.Fatalf("reinsert %d of %d after emptying the store: %v", i, n, err)
		}
	}
}

func TestCapacityOverwriteCountsNet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	h, err := New().Open(path, store.Options{Capacity: 64 << 10})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	value := make([]byte, 40<<10)
	for i := 0; i < 5; i++ {
		if err := h.Update(func(tx store.Tx) error { return tx.Put([]byte("k"), value) }); err != nil {
			t.Fatalf("overwrite %d: %v", i, err)
		}
	}
}
