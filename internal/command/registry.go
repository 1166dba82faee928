// Package command is the registry of post-expansion actions, looked up and
// invoked by identifier.
package command

import "sync"

// Func is one registered command. Errors are reported to the user but never
// abort the sequence that invoked the command.
type Func func() error

// Registry maps command identifiers to their implementations.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Func)}
}

// Register binds id to fn, replacing any previous binding.
func (r *Registry) Register(id string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[id] = fn
}

// Lookup resolves a command identifier.
func (r *Registry) Lookup(id string) (func() error, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.commands[id]
	return fn, ok
}

// IDs returns the registered identifiers, for diagnostics.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.commands))
	for id := range r.commands {
		ids = append(ids, id)
	}
	return ids
}
