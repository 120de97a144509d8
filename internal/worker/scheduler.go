package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"emsp/internal/dispatch"
	"emsp/internal/domain/event"
	"emsp/internal/domain/outbox"
)

var (
	sweepPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_sweep_pending_events",
		Help: "Number of PENDING events seen by the last sweep",
	})
	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_sweep_duration_seconds",
		Help:    "Duration of one redelivery sweep",
		Buckets: prometheus.DefBuckets,
	})
)

type SchedulerConfig struct {
	Interval    time.Duration
	GracePeriod time.Duration
}

// SweepStats summarizes one pass over the outbox.
type SweepStats struct {
	Pending   int
	Eligible  int
	Processed int
	Failed    int
}

// Scheduler periodically redelivers PENDING events that are older than the
// grace period.
type Scheduler struct {
	cfg        SchedulerConfig
	store      outbox.Repository
	dispatcher Dispatcher
	tx         outbox.Transactor
	now        func() time.Time
	scheduler  gocron.Scheduler
	logger     *slog.Logger
}

func NewScheduler(cfg SchedulerConfig, store outbox.Repository, dispatcher Dispatcher, tx outbox.Transactor, logger *slog.Logger) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", cfg.Interval)
	}
	if cfg.GracePeriod < 0 {
		return nil, fmt.Errorf("grace period must not be negative, got %s", cfg.GracePeriod)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		tx:         tx,
		now:        time.Now,
		scheduler:  s,
		logger:     logger,
	}, nil
}

// WithClock replaces the time source used for the grace check.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start registers the sweep job and starts the scheduler. A sweep that is
// still running when the next tick fires makes that tick skip.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() { s.Sweep(ctx) }),
		gocron.WithName("outbox-redelivery"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create redelivery job: %w", err)
	}

	s.logger.Info("Redelivery scheduler started",
		"interval", s.cfg.Interval.String(), "grace_period", s.cfg.GracePeriod.String())
	s.scheduler.Start()
	return nil
}

func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping redelivery scheduler")
	return s.scheduler.Shutdown()
}

// Sweep runs one redelivery pass. Each eligible event is dispatched in its
// own transaction and a failure never stops the pass.
func (s *Scheduler) Sweep(ctx context.Context) SweepStats {
	start := time.Now()
	defer func() { sweepDuration.Observe(time.Since(start).Seconds()) }()

	var stats SweepStats
	events, err := s.store.FindUnprocessed(ctx)
	if err != nil {
		s.logger.Error("failed to list pending events", "error", err)
		return stats
	}
	stats.Pending = len(events)
	sweepPending.Set(float64(len(events)))

	now := s.now()
	for _, e := range events {
		if ctx.Err() != nil {
			break
		}
		if !e.Meta().ReadyAt(now, s.cfg.GracePeriod) {
			continue
		}
		stats.Eligible++

		outcome, err := s.redeliver(ctx, e)
		switch {
		case err != nil:
			stats.Failed++
			s.logger.Error("redelivery failed",
				"event_id", e.Meta().EventID, "event_type", e.Type().String(), "error", err)
		case outcome == dispatch.Processed:
			stats.Processed++
		}
	}

	if stats.Eligible > 0 {
		s.logger.Info("Redelivery sweep finished",
			"pending", stats.Pending, "eligible", stats.Eligible,
			"processed", stats.Processed, "failed", stats.Failed)
	}
	return stats
}

func (s *Scheduler) redeliver(ctx context.Context, e event.Event) (outcome dispatch.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = dispatch.Failed
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var dispatchErr error
		outcome, dispatchErr = s.dispatcher.Dispatch(ctx, e)
		return dispatchErr
	})
	return outcome, err
}
