// Package tools exposes the record operations as named tools with typed,
// strictly decoded arguments.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"kvdoc/internal/logging"
	"kvdoc/internal/records"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
)

var logger = logging.For("tools")

var (
	// ErrUnknownTool is returned by Call for a name that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidParams is returned by Call when the arguments do not match
	// the tool's parameters. It matches records.ErrInvalidArgument.
	ErrInvalidParams = fmt.Errorf("%w: tool arguments", records.ErrInvalidArgument)
)

// Handler runs a tool. args has already been checked against the tool's
// parameters.
type Handler func(ctx context.Context, args Args) (any, error)

// Tool describes a registered tool.
type Tool struct {
	Name    string
	Help    string
	Params  []Param
	Handler Handler
}

// Registry maps tool names to handlers. It is safe for concurrent use.
// Once frozen (via Freeze), no new tools can be registered.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string // insertion order for stable listings
	frozen bool

	metrics *metrics.Set
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		metrics: metrics.NewSet(),
	}
}

// Register adds a tool. Registering the same name twice overwrites the
// previous entry. Panics if t.Handler is nil or if the registry is frozen.
func (r *Registry) Register(t Tool) {
	if t.Handler == nil {
		panic("tools: Register called with nil handler for " + t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic("tools: Register called on frozen registry for " + t.Name)
	}
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Freeze prevents further registration. Servers call it before serving.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Call decodes raw against the parameters of tool name and runs it. raw may
// be empty or null for tools whose parameters are all optional.
func (r *Registry) Call(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	t, ok := r.Lookup(name)
	if !ok {
		// unknown names share one series so clients cannot grow the label set
		r.count("unknown", "unknown")
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	callID := uuid.NewString()
	log := logger.With("tool", name, "call", callID)
	start := time.Now()

	args, err := decodeArgs(t.Params, raw)
	if err != nil {
		r.count(name, "invalid")
		log.Debug("rejected arguments", "err", err)
		return nil, err
	}

	res, err := t.Handler(ctx, args)
	r.metrics.GetOrCreateHistogram(fmt.Sprintf(`kvdoc_tool_duration_seconds{tool=%q}`, name)).UpdateDuration(start)
	if err != nil {
		r.count(name, outcome(err))
		log.Warn("tool failed", "err", err, "elapsed", time.Since(start))
		return nil, err
	}
	r.count(name, "ok")
	log.Debug("tool done", "elapsed", time.Since(start))
	return res, nil
}

func (r *Registry) count(tool, outcome string) {
	r.metrics.GetOrCreateCounter(fmt.Sprintf(`kvdoc_tool_calls_total{tool=%q,outcome=%q}`, tool, outcome)).Inc()
}

func outcome(err error) string {
	switch {
	case errors.Is(err, records.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, records.ErrDecode):
		return "decode"
	case errors.Is(err, records.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}

// Metrics returns the registry's metric set.
func (r *Registry) Metrics() *metrics.Set {
	return r.metrics
}

// HelpText returns a formatted listing of all registered tools in
// registration order.
func (r *Registry) HelpText() string {
	var b strings.Builder
	b.WriteString("Tools:\n")
	for _, t := range r.List() {
		names := make([]string, 0, len(t.Params))
		for _, p := range t.Params {
			if p.Required {
				names = append(names, p.Name)
			} else {
				names = append(names, "["+p.Name+"]")
			}
		}
		_, _ = fmt.Fprintf(&b, "  %-16s %s\n", t.Name, t.Help)
		if len(names) > 0 {
			_, _ = fmt.Fprintf(&b, "  %-16s args: %s\n", "", strings.Join(names, " "))
		}
	}
	return b.String()
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}
