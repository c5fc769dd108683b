// Package records implements queries and mutations over JSON documents kept
// in an ordered key-value store.
//
// Every operation names the store by path, opens a handle, runs exactly one
// read or write scope, and closes the handle before returning. Missing keys
// and non-matching filters are reported in result fields, never as errors.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"kvdoc/internal/document"
	"kvdoc/internal/logging"
	"kvdoc/internal/store"
)

// MaxKeyLen is the longest key accepted, in bytes. It is the tightest limit
// among the supported engines.
const MaxKeyLen = 511

var (
	// ErrUnavailable is returned when the store cannot be opened or created.
	ErrUnavailable = store.ErrUnavailable
	// ErrDecode is returned when a stored value is not a JSON object.
	ErrDecode = errors.New("stored value is not a JSON object")
	// ErrInvalidArgument is returned for bad keys, unencodable values and
	// other caller contract violations.
	ErrInvalidArgument = errors.New("invalid argument")
)

var logger = logging.For("records")

// Outcome messages carried in the error field of unsuccessful results.
const (
	reasonKeyExists  = "key exists"
	reasonNotFound   = "key not found"
	reasonNotNumeric = "field is not numeric"
)

// pendingSentinel marks a record as awaiting processing.
var pendingSentinel = json.RawMessage("1")

// Options configures how the repository opens stores.
type Options struct {
	Capacity int64
	Timeout  time.Duration
}

// Repository runs record operations against stores opened through engine.
// It holds no per-store state; engine may be a pool.
type Repository struct {
	engine store.Engine
	opts   Options
}

// New returns a Repository that opens stores with engine.
func New(engine store.Engine, opts Options) *Repository {
	return &Repository{engine: engine, opts: opts}
}

// Engine returns the engine stores are opened with.
func (r *Repository) Engine() store.Engine {
	return r.engine
}

func (r *Repository) open(path string, readOnly bool) (store.Handle, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty store path", ErrInvalidArgument)
	}
	return r.engine.Open(path, store.Options{
		ReadOnly: readOnly,
		Capacity: r.opts.Capacity,
		Timeout:  r.opts.Timeout,
	})
}

func closeHandle(path string, h store.Handle) {
	if err := h.Close(); err != nil {
		logger.Warn("closing store", "path", path, "err", err)
	}
}

// view runs fn in a read scope on the store at path.
func (r *Repository) view(path string, fn func(store.Tx) error) error {
	h, err := r.open(path, true)
	if err != nil {
		return err
	}
	defer closeHandle(path, h)
	return h.View(fn)
}

// update runs fn in a write scope on the store at path, creating the store
// if needed.
func (r *Repository) update(path string, fn func(store.Tx) error) error {
	h, err := r.open(path, false)
	if err != nil {
		return err
	}
	defer closeHandle(path, h)
	return h.Update(fn)
}

func checkKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	case len(key) > MaxKeyLen:
		return fmt.Errorf("%w: key is %d bytes, limit %d", ErrInvalidArgument, len(key), MaxKeyLen)
	case !utf8.ValidString(key):
		return fmt.Errorf("%w: key is not valid UTF-8 text", ErrInvalidArgument)
	}
	return nil
}

func decode(key, raw []byte) (*document.Document, error) {
	d, err := document.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %w", ErrDecode, key, err)
	}
	return d, nil
}

func encodeValue(name string, v any) (json.RawMessage, error) {
	raw, err := document.EncodeValue(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidArgument, name, err)
	}
	return raw, nil
}

func toDocument(name string, v any) (*document.Document, error) {
	d, err := document.FromValue(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidArgument, name, err)
	}
	return d, nil
}

// scan walks entries in key order starting at the first key >= start (or at
// the first key when start is nil) until fn returns false.
func scan(ctx context.Context, tx store.Tx, start []byte, fn func(key, value []byte) (bool, error)) error {
	c, err := tx.Cursor()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	var ok bool
	if start == nil {
		ok = c.First()
	} else {
		ok = c.Seek(start)
	}
	for ; ok; ok = c.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		more, err := fn(c.Key(), c.Value())
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// Record is a key with its decoded document.
type Record struct {
	Key   string             `json:"key"`
	Value *document.Document `json:"value"`
}
