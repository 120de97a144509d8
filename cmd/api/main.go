package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emsp/internal/api"
	"emsp/internal/application/factories/infrastructure"
	"emsp/internal/config"
	"emsp/internal/publisher"
	"emsp/internal/usecase"
	"emsp/internal/worker"
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

	infraFactory := infrastructure.NewFactory(cfg, logger)
	defer infraFactory.Close()

	ob, err := infraFactory.Outbox(ctx)
	if err != nil {
		logger.Error("failed to initialize outbox", "error", err)
		os.Exit(1)
	}

	// Redis backs the idempotency keys; the API still serves without it
	redisClient, err := infraFactory.Redis(ctx)
	if err != nil {
		logger.Warn("redis unavailable, idempotency keys disabled", "error", err)
		redisClient = nil
	}

	// Immediate delivery after commit
	pool := worker.NewPool(ctx, cfg.Outbox.NotifyWorkers, cfg.Outbox.NotifyQueue, logger)
	notifier := worker.NewNotifier(pool, ob.Store, ob.Dispatcher, logger)
	eventPublisher := publisher.New(ob.Store, notifier, logger)

	// UseCases
	assignCardUC := usecase.NewAssignCard(ob.TxManager, ob.Cards, ob.Accounts, eventPublisher)
	getEventUC := usecase.NewGetEvent(ob.Store)

	// REST API Handler
	handlers := api.NewHandlers(assignCardUC, getEventUC)
	apiHandler := api.NewRouter(handlers, redisClient)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           apiHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Let in-flight deliveries finish; anything left is picked up by the worker
	pool.Close()

	logger.Info("Server exiting")
}
