// Package publisher records events in the outbox and triggers immediate
// delivery once the producing transaction commits.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"emsp/internal/domain/event"
	"emsp/internal/domain/outbox"
	"emsp/internal/transaction"
)

var (
	eventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "The total number of events written to the outbox",
	})
	publishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_errors_total",
		Help: "The total number of events that could not be written to the outbox",
	})
	notifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_notify_failures_total",
		Help: "The total number of immediate notifications that could not be started",
	})
)

// Notifier starts delivery of an event without waiting for it.
type Notifier interface {
	Notify(e event.Event) error
}

type Publisher struct {
	store    outbox.Repository
	notifier Notifier
	logger   *slog.Logger
}

// New builds a publisher. A nil notifier leaves delivery to the scheduler.
func New(store outbox.Repository, notifier Notifier, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Publish persists e in the caller's transaction. A returned error means the
// event was not recorded and the transaction must roll back. Immediate
// delivery is attempted after commit, or right away without a transaction.
func (p *Publisher) Publish(ctx context.Context, e event.Event) error {
	if err := p.store.Save(ctx, e); err != nil {
		publishErrors.Inc()
		return fmt.Errorf("publish event: %w", err)
	}
	eventsPublished.Inc()

	if p.notifier == nil {
		return nil
	}
	if !transaction.AfterCommit(ctx, func() { p.notify(e) }) {
		p.notify(e)
	}
	return nil
}

func (p *Publisher) notify(e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			notifyFailures.Inc()
			p.logger.Error("immediate notification panicked", "event_id", e.Meta().EventID, "panic", r)
		}
	}()

	if err := p.notifier.Notify(e); err != nil {
		notifyFailures.Inc()
		p.logger.Warn("immediate notification failed, leaving event to the scheduler",
			"event_id", e.Meta().EventID, "event_type", e.Type().String(), "error", err)
	}
}
