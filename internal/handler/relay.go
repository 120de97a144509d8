package handler

import (
	"context"
	"fmt"
	"time"

	"emsp/internal/domain/event"
)

type MessagePublisher interface {
	Publish(ctx context.Context, msg event.Message) error
}

// Relay forwards events to the message broker. It is registered for the root
// type, so it receives every event that has no dedicated handler.
type Relay struct {
	publisher MessagePublisher
	producer  string
	timeout   time.Duration
}

func NewRelay(publisher MessagePublisher, producer string) *Relay {
	return &Relay{publisher: publisher, producer: producer, timeout: 5 * time.Second}
}

func (r *Relay) Handles() *event.Type {
	return event.Root
}

func (r *Relay) Handle(ctx context.Context, e event.Event) error {
	msg, err := event.NewMessage(e, r.producer)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.publisher.Publish(sendCtx, msg); err != nil {
		return fmt.Errorf("relay event %s: %w", msg.ID, err)
	}
	return nil
}
