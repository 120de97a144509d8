package dispatch

import (
	"errors"
	"fmt"
	"sync"

	"emsp/internal/domain/event"
)

var (
	ErrNilHandler     = errors.New("handler must not be nil")
	ErrUntypedHandler = errors.New("cannot register a handler without a declared event type, use a named handler type")
)

// Registry maps event types to handlers. Lookups fall back to the closest
// registered ancestor of the requested type.
type Registry struct {
	mu       sync.RWMutex
	handlers map[*event.Type]event.Handler
}

func NewRegistry(handlers ...event.Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[*event.Type]event.Handler)}
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register binds h to the type it declares. A later registration for the
// same type replaces the earlier one.
func (r *Registry) Register(h event.Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	t := h.Handles()
	if t == nil {
		return fmt.Errorf("%w: %T", ErrUntypedHandler, h)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
	return nil
}

// Lookup returns the handler for t, or for its nearest registered ancestor.
func (r *Registry) Lookup(t *event.Type) (event.Handler, bool) {
	if t == nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.handlers[t]; ok {
		return h, true
	}
	for _, parent := range t.Ancestors() {
		if h, ok := r.handlers[parent]; ok {
			return h, true
		}
	}
	return nil, false
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
