// Package executor provides the named dispatch table mapping a Link's
// execution name to the implementation that runs it, grounded on
// tools/registry.go's name→handler map. Unlike that package's global
// singleton, Registry here is an explicit value owned by the Engine
// (spec.md's Design Notes call for replacing global singletons with an
// explicit value the caller threads through).
package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/ingestkit/engine/task"
)

// Handler runs one task and reports its outcome. Implementations wrap a
// format-identification tool, a normalizer, a packager, or any other
// external "task executor" spec.md §1 scopes as a collaborator the engine
// never implements.
type Handler func(ctx context.Context, t task.Task) (task.Result, error)

// Registry is a thread-safe name→Handler table.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under name. It returns ErrAlreadyRegistered if
// name is already bound; use Replace to update an existing binding.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.handlers[name] = h
	return nil
}

// Replace updates the handler bound to name, or registers it if absent.
func (r *Registry) Replace(name string, h Handler) error {
	if name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
	return nil
}

// Get returns the handler bound to name, if any.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// List returns the registered executor names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Execute looks up t.Execution and invokes it. ErrNotFound is returned
// (wrapped) when no executor is registered under that name.
func (r *Registry) Execute(ctx context.Context, t task.Task) (task.Result, error) {
	h, ok := r.Get(t.Execution)
	if !ok {
		return task.Result{}, fmt.Errorf("%w: %s", ErrNotFound, t.Execution)
	}
	return h(ctx, t)
}
