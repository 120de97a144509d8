package event

import "context"

// Handler processes one event type. Handles names the type the handler is
// registered for; a handler that cannot name it is rejected by the registry.
type Handler interface {
	Handles() *Type
	Handle(ctx context.Context, e Event) error
}

// HandlerFunc adapts a plain function. It declares no event type, so it can be
// invoked directly but not registered.
type HandlerFunc func(ctx context.Context, e Event) error

func (f HandlerFunc) Handles() *Type {
	return nil
}

func (f HandlerFunc) Handle(ctx context.Context, e Event) error {
	return f(ctx, e)
}
