package handler

import (
	"context"

	"emsp/internal/domain/event"
)

// FanOut runs several handlers for one event type, in order. The first error
// stops the chain and leaves the event for redelivery, so every handler in it
// must tolerate seeing the same event again.
type FanOut struct {
	handles  *event.Type
	handlers []event.Handler
}

func NewFanOut(t *event.Type, handlers ...event.Handler) *FanOut {
	return &FanOut{handles: t, handlers: handlers}
}

func (f *FanOut) Handles() *event.Type {
	return f.handles
}

func (f *FanOut) Handle(ctx context.Context, e event.Event) error {
	for _, h := range f.handlers {
		if err := h.Handle(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
