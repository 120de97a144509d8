package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emsp/internal/application/factories/infrastructure"
	"emsp/internal/config"
	"emsp/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize structured JSON logger
	level, _ := cfg.Log.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Infrastructure
	infraFactory := infrastructure.NewFactory(cfg, logger)
	defer infraFactory.Close()

	ob, err := infraFactory.Outbox(ctx)
	if err != nil {
		logger.Error("failed to initialize outbox", "error", err)
		os.Exit(1)
	}

	// Metrics server for worker
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: ":" + cfg.HTTP.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("Worker metrics listening", "port", cfg.HTTP.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	scheduler, err := worker.NewScheduler(worker.SchedulerConfig{
		Interval:    cfg.Outbox.SweepInterval,
		GracePeriod: cfg.Outbox.GracePeriod,
	}, ob.Store, ob.Dispatcher, ob.TxManager, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()

	if err := scheduler.Stop(); err != nil {
		logger.Error("scheduler stopped with error", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	logger.Info("worker exited")
}
