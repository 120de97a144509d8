package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"emsp/internal/domain/outbox"
)

type EventDTO struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   int64           `json:"aggregate_id"`
	Status        string          `json:"status"`
	Version       int64           `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

type RecordFinder interface {
	FindRecord(ctx context.Context, eventID string) (*outbox.Record, error)
}

type GetEvent struct {
	records RecordFinder
}

func NewGetEvent(records RecordFinder) *GetEvent {
	return &GetEvent{records: records}
}

func (uc *GetEvent) Execute(ctx context.Context, eventID string) (*EventDTO, error) {
	rec, err := uc.records.FindRecord(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return NewEventDTO(rec), nil
}

func NewEventDTO(rec *outbox.Record) *EventDTO {
	return &EventDTO{
		EventID:       rec.EventID,
		EventType:     rec.EventType,
		AggregateType: rec.AggregateType,
		AggregateID:   rec.AggregateID,
		Status:        string(rec.Status),
		Version:       rec.Version,
		Timestamp:     rec.Timestamp,
		Payload:       json.RawMessage(rec.Payload),
	}
}
