package pool

import (
	"errors"
	"fmt"

	"kvdoc/internal/logging"
	"kvdoc/internal/store"

	"github.com/puzpuzpuz/xsync/v3"
)

var logger = logging.For("pool")

// Pool is a store.Engine that keeps one read-write handle per path open for
// the life of the pool. Handles it returns share that handle; closing them
// is a no-op. Results are identical to opening per call: read-only requests
// for a path that does not exist still fail, and read-only handles still
// refuse writes.
type Pool struct {
	inner   store.Engine
	opts    store.Options
	handles *xsync.MapOf[string, store.Handle]
}

// New wraps inner. opts supplies capacity and timeout for the shared handles;
// its ReadOnly field is ignored.
func New(inner store.Engine, opts store.Options) *Pool {
	opts.ReadOnly = false
	return &Pool{
		inner:   inner,
		opts:    opts,
		handles: xsync.NewMapOf[string, store.Handle](),
	}
}

func (p *Pool) Name() string { return p.inner.Name() }

// Open returns a shared handle for path. opts.ReadOnly restricts the returned
// view; other fields are taken from the pool.
func (p *Pool) Open(path string, opts store.Options) (store.Handle, error) {
	if h, ok := p.handles.Load(path); ok {
		return &shared{Handle: h, readOnly: opts.ReadOnly}, nil
	}
	if opts.ReadOnly {
		// A read-only open must not create the store.
		probe, err := p.inner.Open(path, store.Options{ReadOnly: true, Timeout: p.opts.Timeout})
		if err != nil {
			return nil, err
		}
		if err := probe.Close(); err != nil {
			return nil, fmt.Errorf("%w: closing probe: %w", store.ErrUnavailable, err)
		}
	}

	var openErr error
	h, ok := p.handles.Compute(path, func(old store.Handle, loaded bool) (store.Handle, bool) {
		if loaded {
			return old, false
		}
		h, err := p.inner.Open(path, p.opts)
		if err != nil {
			openErr = err
			return nil, true
		}
		logger.Debug("opened pooled handle", "path", path, "engine", p.inner.Name())
		return h, false
	})
	if !ok {
		if openErr == nil {
			openErr = fmt.Errorf("%w: %s", store.ErrUnavailable, path)
		}
		return nil, openErr
	}
	return &shared{Handle: h, readOnly: opts.ReadOnly}, nil
}

// Len returns the number of open pooled handles.
func (p *Pool) Len() int {
	return p.handles.Size()
}

// Close closes every pooled handle.
func (p *Pool) Close() error {
	var errs []error
	p.handles.Range(func(path string, h store.Handle) bool {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", path, err))
		}
		p.handles.Delete(path)
		return true
	})
	return errors.Join(errs...)
}

type shared struct {
	store.Handle
	readOnly bool
}

func (s *shared) Update(fn func(store.Tx) error) error {
	if s.readOnly {
		return store.ErrReadOnly
	}
	return s.Handle.Update(fn)
}

func (s *shared) Close() error { return nil }
