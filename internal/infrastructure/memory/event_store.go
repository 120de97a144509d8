// Package memory holds in-process implementations of the outbox contracts.
// Writes are applied immediately and are not undone by a rollback.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"emsp/internal/domain/event"
	"emsp/internal/domain/outbox"
)

type EventStore struct {
	mu      sync.RWMutex
	catalog *event.Catalog
	records map[string]outbox.Record
	logger  *slog.Logger
}

func NewEventStore(catalog *event.Catalog, logger *slog.Logger) *EventStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventStore{
		catalog: catalog,
		records: make(map[string]outbox.Record),
		logger:  logger,
	}
}

func (s *EventStore) Save(ctx context.Context, e event.Event) error {
	rec, err := outbox.Encode(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.EventID]; ok {
		if existing.Status == event.StatusProcessed && rec.Status != event.StatusProcessed {
			return fmt.Errorf("%w: %s", outbox.ErrStaleWrite, rec.EventID)
		}
		rec.Version = existing.Version + 1
	}
	s.records[rec.EventID] = rec
	return nil
}

func (s *EventStore) FindByID(ctx context.Context, eventID string) (event.Event, error) {
	rec, err := s.FindRecord(ctx, eventID)
	if err != nil {
		return nil, err
	}
	e, err := outbox.Decode(s.catalog, *rec)
	if err != nil {
		s.logger.Error("failed to reconstruct stored event", "event_id", eventID, "error", err)
		return nil, fmt.Errorf("%w: %w", outbox.ErrNotFound, err)
	}
	return e, nil
}

func (s *EventStore) FindUnprocessed(ctx context.Context) ([]event.Event, error) {
	s.mu.RLock()
	pending := make([]outbox.Record, 0, len(s.records))
	for _, rec := range s.records {
		if rec.Status == event.StatusPending {
			pending = append(pending, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Timestamp.Equal(pending[j].Timestamp) {
			return pending[i].EventID < pending[j].EventID
		}
		return pending[i].Timestamp.Before(pending[j].Timestamp)
	})

	events := make([]event.Event, 0, len(pending))
	for _, rec := range pending {
		e, err := outbox.Decode(s.catalog, rec)
		if err != nil {
			s.logger.Error("skipping undecodable event", "event_id", rec.EventID, "event_type", rec.EventType, "error", err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func (s *EventStore) StatusOf(ctx context.Context, eventID string) (event.Status, error) {
	rec, err := s.FindRecord(ctx, eventID)
	if err != nil {
		return "", err
	}
	return rec.Status, nil
}

func (s *EventStore) FindRecord(ctx context.Context, eventID string) (*outbox.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[eventID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", outbox.ErrNotFound, eventID)
	}
	return &rec, nil
}

// Put stores a raw record as is. Tests use it to plant corrupt rows.
func (s *EventStore) Put(rec outbox.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.EventID] = rec
}
