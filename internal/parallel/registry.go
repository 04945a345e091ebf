package parallel

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler runs one gob-encoded task inside a worker process and returns the
// gob-encoded result.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// Registry maps workload names to handlers. The parent and its worker
// processes run the same binary, so both sides build the same registry.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds w to r under w.Name.
func Register[T, R any](r *Registry, w Workload[T, R]) error {
	if w.Name == "" {
		return invalidConfig("workload name is empty")
	}
	if w.Fn == nil {
		return invalidConfig("workload %q has no function", w.Name)
	}
	return r.add(w.Name, func(ctx context.Context, payload []byte) ([]byte, error) {
		var task T
		if err := decodeValue(payload, &task); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		result, err := invoke(ctx, w.Fn, task)
		if err != nil {
			return nil, err
		}
		data, err := encodeValue(result)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		return data, nil
	})
}

// MustRegister is like Register but panics on error. It is meant for
// package-level registries built at startup.
func MustRegister[T, R any](r *Registry, w Workload[T, R]) {
	if err := Register(r, w); err != nil {
		panic(err)
	}
}

func (r *Registry) add(name string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return invalidConfig("workload %q already registered", name)
	}
	r.handlers[name] = h
	return nil
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered workload names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
