package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusProcessed Status = "PROCESSED"
)

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusProcessed
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid event status %q", raw)
	}
	return s, nil
}

// Source identifies the aggregate that produced an event.
type Source struct {
	AggregateType string `json:"aggregateType"`
	AggregateID   int64  `json:"aggregateId"`
}

func (s Source) String() string {
	return fmt.Sprintf("%s:%d", s.AggregateType, s.AggregateID)
}

// Event is a fact recorded in the outbox. Concrete events embed Base and
// report their Type.
type Event interface {
	Meta() *Base
	Type() *Type
}

// Base carries the immutable identity of an event plus its delivery status.
// Status is the only field a consumer may change, and only forward.
type Base struct {
	EventID   string    `json:"eventId"`
	Source    Source    `json:"eventSource"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

func NewBase(source Source) Base {
	return Base{
		EventID:   uuid.NewString(),
		Source:    source,
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Status:    StatusPending,
	}
}

func (b *Base) Meta() *Base {
	return b
}

func (b *Base) IsProcessed() bool {
	return b.Status == StatusProcessed
}

// MarkProcessed flips the status to PROCESSED. It is idempotent.
func (b *Base) MarkProcessed() {
	b.Status = StatusProcessed
}

// SetStatus applies a persisted status to a reconstructed event.
func (b *Base) SetStatus(s Status) error {
	if !s.IsValid() {
		return fmt.Errorf("invalid event status %q", s)
	}
	if b.Status == StatusProcessed && s != StatusProcessed {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, b.Status, s)
	}
	b.Status = s
	return nil
}

// ReadyAt reports whether the event is older than grace at instant now.
func (b *Base) ReadyAt(now time.Time, grace time.Duration) bool {
	return !now.Before(b.Timestamp.Add(grace))
}
