package worker

import (
	"context"
	"log/slog"

	"emsp/internal/dispatch"
	"emsp/internal/domain/event"
	"emsp/internal/domain/outbox"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, e event.Event) (dispatch.Outcome, error)
}

// Notifier hands freshly committed events to the pool for delivery. Each job
// reloads the event so it works on the committed state.
type Notifier struct {
	pool       *Pool
	store      outbox.Repository
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewNotifier(pool *Pool, store outbox.Repository, dispatcher Dispatcher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		pool:       pool,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (n *Notifier) Notify(e event.Event) error {
	id := e.Meta().EventID
	return n.pool.Submit(func(ctx context.Context) {
		stored, err := n.store.FindByID(ctx, id)
		if err != nil {
			n.logger.Error("failed to load event for delivery", "event_id", id, "error", err)
			return
		}
		if _, err := n.dispatcher.Dispatch(ctx, stored); err != nil {
			n.logger.Warn("immediate delivery failed, event stays pending",
				"event_id", id, "event_type", stored.Type().String(), "error", err)
		}
	})
}
