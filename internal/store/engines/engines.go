package engines

import (
	"fmt"
	"sort"

	"kvdoc/internal/store"
	"kvdoc/internal/store/bolt"
	"kvdoc/internal/store/leveldb"
	"kvdoc/internal/store/mem"
	"kvdoc/internal/store/pebble"
)

// Default is the engine used when none is configured.
const Default = bolt.Name

var factories = map[string]func() store.Engine{
	bolt.Name:    func() store.Engine { return bolt.New() },
	leveldb.Name: func() store.Engine { return leveldb.New() },
	pebble.Name:  func() store.Engine { return pebble.New() },
	mem.Name:     func() store.Engine { return mem.New() },
}

// ByName returns a fresh engine for name. An empty name selects Default.
func ByName(name string) (store.Engine, error) {
	if name == "" {
		name = Default
	}
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown store engine %q (want one of %v)", name, Names())
	}
	return f(), nil
}

// Names lists the known engine names in sorted order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
