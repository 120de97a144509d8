package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the envelope relayed to Kafka.
// Payload is the full serialized event, subtype fields included.
type Message struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   int64           `json:"aggregate_id"`
	Producer      string          `json:"producer"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

func NewMessage(e Event, producer string) (Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s: %w", e.Type(), err)
	}

	meta := e.Meta()
	return Message{
		ID:            meta.EventID,
		Type:          e.Type().Name,
		AggregateType: meta.Source.AggregateType,
		AggregateID:   meta.Source.AggregateID,
		Producer:      producer,
		OccurredAt:    meta.Timestamp,
		Payload:       payload,
	}, nil
}

// Key partitions messages by aggregate so one aggregate's facts stay ordered.
func (m Message) Key() []byte {
	if m.AggregateType == "" {
		return []byte(m.ID)
	}
	return []byte(fmt.Sprintf("%s:%d", m.AggregateType, m.AggregateID))
}
