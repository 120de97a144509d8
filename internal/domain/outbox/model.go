package outbox

import (
	"context"
	"time"

	"emsp/internal/domain/event"
)

// Record is the persisted projection of an event.
type Record struct {
	EventID       string       `json:"event_id"`
	EventType     string       `json:"event_type"`
	AggregateType string       `json:"aggregate_type"`
	AggregateID   int64        `json:"aggregate_id"`
	Payload       []byte       `json:"payload"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        event.Status `json:"status"`
	Version       int64        `json:"version"`
}

// Repository is the outbox store, keyed by event id alone.
type Repository interface {
	// Save inserts the event as a new record or updates the existing one.
	Save(ctx context.Context, e event.Event) error
	// FindByID returns the reconstructed event or ErrNotFound.
	FindByID(ctx context.Context, eventID string) (event.Event, error)
	// FindUnprocessed returns every PENDING event, oldest first. Records that
	// cannot be reconstructed are logged and left out.
	FindUnprocessed(ctx context.Context) ([]event.Event, error)
	// StatusOf reads only the persisted status.
	StatusOf(ctx context.Context, eventID string) (event.Status, error)
}

// Locker guards an event id so only one worker handles it at a time.
// A held lock expires on its own if it is never released.
type Locker interface {
	TryLock(ctx context.Context, eventID string) (bool, error)
	Unlock(ctx context.Context, eventID string) error
}

// Transactor runs fn inside a unit of work whose context carries the
// transaction and its hooks.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
