package records

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"kvdoc/internal/store"
	"kvdoc/internal/store/bolt"
	"kvdoc/internal/store/leveldb"
	"kvdoc/internal/store/mem"
	"kvdoc/internal/store/pebble"
)

var ctx = context.Background()

// seed writes raw values straight through the engine, bypassing validation,
// so tests can plant undecodable records.
func seed(t *testing.T, eng store.Engine, path string, data map[string]string) {
	t.Helper()
	h, err := eng.Open(path, store.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	err = h.Update(func(tx store.Tx) error {
		for k, v := range data {
			if err := tx.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

// taskData mirrors a small work queue: status 1 is pending.
var taskData = map[string]string{
	"task:1": `{"id": 1, "status": 1}`,
	"task:2": `{"id": 2, "status": 1}`,
	"task:3": `{"id": 3, "status": 0}`,
	"task:4": `{"id": 4, "status": 1}`,
	"task:5": `{"id": 5, "status": 2}`,
}

func tasksDB(t *testing.T) (*Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.db")
	repo := New(bolt.New(), Options{})
	seed(t, repo.Engine(), path, taskData)
	return repo, path
}

// bigDB holds n records task:0..task:{n-1}, all pending.
func bigDB(t *testing.T, n int) (*Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "big.db")
	repo := New(bolt.New(), Options{})
	data := make(map[string]string, n)
	for i := 0; i < n; i++ {
		data[fmt.Sprintf("task:%d", i)] = fmt.Sprintf(`{"id": %d, "status": 1}`, i)
	}
	seed(t, repo.Engine(), path, data)
	return repo, path
}

func invalidDB(t *testing.T) (*Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invalid.db")
	repo := New(bolt.New(), Options{})
	seed(t, repo.Engine(), path, map[string]string{"bad": "not-json"})
	return repo, path
}

// allEngines returns one fresh engine of each kind with a store path suited
// to it (a file for bolt, a directory for the others).
func allEngines(t *testing.T) map[string]func() (store.Engine, string) {
	return map[string]func() (store.Engine, string){
		bolt.Name:    func() (store.Engine, string) { return bolt.New(), filepath.Join(t.TempDir(), "db") },
		leveldb.Name: func() (store.Engine, string) { return leveldb.New(), filepath.Join(t.TempDir(), "db") },
		pebble.Name:  func() (store.Engine, string) { return pebble.New(), filepath.Join(t.TempDir(), "db") },
		mem.Name:     func() (store.Engine, string) { return mem.New(), "mem://tasks" },
	}
}
