// Package dispatch delivers stored events to their handlers at most once.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"emsp/internal/domain/event"
	"emsp/internal/domain/outbox"
)

// Outcome describes how a dispatch attempt ended.
type Outcome string

const (
	Processed        Outcome = "processed"
	AlreadyProcessed Outcome = "already_processed"
	LockBusy         Outcome = "lock_busy"
	Failed           Outcome = "failed"
	NoHandler        Outcome = "no_handler"
)

// Dispatcher runs the handler for an event under the event lock and records
// the event as processed in the same transaction.
type Dispatcher struct {
	registry *Registry
	store    outbox.Repository
	locker   outbox.Locker
	tx       outbox.Transactor
	logger   *slog.Logger
}

func NewDispatcher(registry *Registry, store outbox.Repository, locker outbox.Locker, tx outbox.Transactor, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		store:    store,
		locker:   locker,
		tx:       tx,
		logger:   logger,
	}
}

// Dispatch delivers e to its handler unless it is already processed or
// another worker holds its lock. A non-nil error means the handler or the
// store failed and the event is still PENDING.
func (d *Dispatcher) Dispatch(ctx context.Context, e event.Event) (Outcome, error) {
	start := time.Now()
	outcome, err := d.dispatch(ctx, e)
	dispatchTotal.WithLabelValues(string(outcome)).Inc()
	dispatchDuration.Observe(time.Since(start).Seconds())
	return outcome, err
}

func (d *Dispatcher) dispatch(ctx context.Context, e event.Event) (Outcome, error) {
	meta := e.Meta()
	id := meta.EventID

	h, ok := d.registry.Lookup(e.Type())
	if !ok {
		d.logger.Warn("no handler registered, skipping event",
			"event_id", id, "event_type", e.Type().String())
		return NoHandler, nil
	}

	status, err := d.store.StatusOf(ctx, id)
	if err != nil {
		return Failed, fmt.Errorf("read status of event %s: %w", id, err)
	}
	if status == event.StatusProcessed {
		return AlreadyProcessed, nil
	}

	outcome := Processed
	err = d.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := d.locker.TryLock(ctx, id)
		if err != nil {
			return fmt.Errorf("lock event %s: %w", id, err)
		}
		if !locked {
			outcome = LockBusy
			return nil
		}
		defer func() {
			if err := d.locker.Unlock(ctx, id); err != nil {
				d.logger.Error("failed to release event lock", "event_id", id, "error", err)
			}
		}()

		status, err := d.store.StatusOf(ctx, id)
		if err != nil {
			return fmt.Errorf("re-read status of event %s: %w", id, err)
		}
		if status == event.StatusProcessed {
			outcome = AlreadyProcessed
			return nil
		}

		if err := h.Handle(ctx, e); err != nil {
			return fmt.Errorf("handler %T for event %s: %w", h, id, err)
		}

		meta.MarkProcessed()
		if err := d.store.Save(ctx, e); err != nil {
			return fmt.Errorf("mark event %s processed: %w", id, err)
		}
		return nil
	})
	if err != nil {
		// The transaction rolled back, so the stored status is still PENDING.
		meta.Status = event.StatusPending
		return Failed, err
	}

	switch outcome {
	case Processed:
		d.logger.Info("event processed", "event_id", id, "event_type", e.Type().String(), "handler", fmt.Sprintf("%T", h))
	case LockBusy:
		d.logger.Debug("event locked by another worker", "event_id", id)
	}
	return outcome, nil
}
