// Package functionregistry holds the callable tool implementations the LLM
// Adapter invokes during a tool-calling round: a name-addressed table of
// JSON-in/JSON-out functions, looked up case-insensitively by the name the
// model requested.
package functionregistry

import (
	"context"
	"strings"
	"sync"

	"github.com/kairos-run/orchestrator/orcherr"
)

// Func is a callable tool implementation. args is the raw JSON object the
// model supplied as call arguments; the result is JSON-encoded back into the
// tool-call audit and the next turn's function-role message.
type Func func(ctx context.Context, args []byte) (result []byte, err error)

// Registry is a case-insensitive, concurrency-safe name→Func table.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds or replaces the implementation for name. name is stored
// lower-cased, so lookups are case-insensitive and RegisteredNames reports
// the lower-cased form.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return orcherr.Newf(orcherr.InvalidInput, "function name must not be empty")
	}
	if fn == nil {
		return orcherr.Newf(orcherr.InvalidInput, "function %q: implementation must not be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[strings.ToLower(name)] = fn
	return nil
}

// TryGet returns the implementation registered for name, if any.
func (r *Registry) TryGet(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[strings.ToLower(name)]
	return fn, ok
}

// Get returns the implementation registered for name, or a ToolMissing error.
func (r *Registry) Get(name string) (Func, error) {
	fn, ok := r.TryGet(name)
	if !ok {
		return nil, orcherr.Newf(orcherr.ToolMissing, "no function registered for %q", name)
	}
	return fn, nil
}

// RegisteredNames returns the names currently registered, in no particular
// order.
func (r *Registry) RegisteredNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}
