package outbox

import (
	"encoding/json"
	"fmt"

	"emsp/internal/domain/event"
)

// Encode projects e into a record. The payload holds the full concrete event
// and EventType holds the tag needed to rebuild it.
func Encode(e event.Event) (Record, error) {
	if e == nil || e.Meta() == nil {
		return Record{}, fmt.Errorf("%w: nil event", ErrSerialization)
	}
	t := e.Type()
	if t == nil {
		return Record{}, fmt.Errorf("%w: event %s has no type", ErrSerialization, e.Meta().EventID)
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s: %w", ErrSerialization, t.Name, err)
	}

	meta := e.Meta()
	return Record{
		EventID:       meta.EventID,
		EventType:     t.Name,
		AggregateType: meta.Source.AggregateType,
		AggregateID:   meta.Source.AggregateID,
		Payload:       payload,
		Timestamp:     meta.Timestamp,
		Status:        meta.Status,
	}, nil
}

// Decode rebuilds the concrete event from a record. The status column wins
// over whatever status the payload carries.
func Decode(catalog *event.Catalog, r Record) (event.Event, error) {
	e, err := catalog.Decode(r.EventType, r.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUndecodable, r.EventID, err)
	}
	meta := e.Meta()
	meta.Status = event.StatusPending
	if err := meta.SetStatus(r.Status); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUndecodable, r.EventID, err)
	}
	return e, nil
}
