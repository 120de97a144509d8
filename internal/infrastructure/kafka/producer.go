package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"emsp/internal/domain/event"
)

type Config struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topic  string
}

func NewProducer(cfg Config) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            5,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}

	return &Producer{writer: w, topic: cfg.Topic}
}

// Publish writes the envelope keyed by its aggregate.
func (p *Producer) Publish(ctx context.Context, msg event.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message %s: %w", msg.ID, err)
	}

	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Key:   msg.Key(),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event-id", Value: []byte(msg.ID)},
				{Key: "event-type", Value: []byte(msg.Type)},
				{Key: "producer", Value: []byte(msg.Producer)},
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (p *Producer) Topic() string {
	return p.topic
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
