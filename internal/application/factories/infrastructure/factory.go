package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"emsp/internal/config"
	"emsp/internal/dispatch"
	"emsp/internal/domain/account"
	"emsp/internal/domain/event"
	"emsp/internal/domain/outbox"
	"emsp/internal/handler"
	"emsp/internal/infrastructure/email"
	"emsp/internal/infrastructure/kafka"
	"emsp/internal/infrastructure/postgres"
	"emsp/internal/infrastructure/redis"

	pgxpool "github.com/jackc/pgx/v5/pgxpool"
	go_redis "github.com/redis/go-redis/v9"
)

type Factory struct {
	cfg      *config.Config
	logger   *slog.Logger
	pgPool   *pgxpool.Pool
	redisCli *go_redis.Client
	producer *kafka.Producer
}

func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

func (f *Factory) Postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if f.pgPool != nil {
		return f.pgPool, nil
	}

	var pool *pgxpool.Pool
	var err error

	// Retry connection up to 5 times
	for i := 0; i < 5; i++ {
		pool, err = postgres.NewClient(ctx, postgres.Config{
			Host:     f.cfg.Postgres.Host,
			Port:     f.cfg.Postgres.Port,
			User:     f.cfg.Postgres.User,
			Password: f.cfg.Postgres.Password,
			DBName:   f.cfg.Postgres.DBName,
			MaxConns: f.cfg.Postgres.MaxConns,
		})
		if err == nil {
			break
		}
		f.logger.Warn("Failed to connect to postgres, retrying in 2s", "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to init postgres after retries: %w", err)
	}

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	f.pgPool = pool
	return pool, nil
}

func (f *Factory) Redis(ctx context.Context) (*go_redis.Client, error) {
	if f.redisCli != nil {
		return f.redisCli, nil
	}

	client, err := redis.NewClient(ctx, redis.Config{
		Addr:     f.cfg.Redis.Addr,
		Password: f.cfg.Redis.Password,
		DB:       f.cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	f.redisCli = client
	return client, nil
}

func (f *Factory) KafkaProducer() *kafka.Producer {
	if f.producer == nil {
		f.producer = kafka.NewProducer(kafka.Config{
			Brokers: f.cfg.Kafka.Brokers,
			Topic:   f.cfg.Kafka.Topic,
		})
	}
	return f.producer
}

// Locker builds the lock backend named by the configuration.
func (f *Factory) Locker(ctx context.Context) (outbox.Locker, error) {
	switch f.cfg.Outbox.LockBackend {
	case config.LockBackendPostgres:
		return postgres.NewRowLocker(f.cfg.Outbox.LockTimeout), nil
	case config.LockBackendRedis:
		client, err := f.Redis(ctx)
		if err != nil {
			return nil, err
		}
		return redis.NewLocker(client, f.cfg.Outbox.LockTTL, f.logger), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", f.cfg.Outbox.LockBackend)
	}
}

// Outbox bundles the pieces every process needs to deliver events.
type Outbox struct {
	Store      *postgres.EventStore
	TxManager  *postgres.TxManager
	Accounts   *postgres.AccountRepository
	Cards      *postgres.CardRepository
	Dispatcher *dispatch.Dispatcher
}

func (f *Factory) Outbox(ctx context.Context) (*Outbox, error) {
	pool, err := f.Postgres(ctx)
	if err != nil {
		return nil, err
	}
	locker, err := f.Locker(ctx)
	if err != nil {
		return nil, err
	}

	accounts := postgres.NewAccountRepository(pool)
	registry, err := dispatch.NewRegistry(f.handlers(accounts)...)
	if err != nil {
		return nil, fmt.Errorf("register handlers: %w", err)
	}

	store := postgres.NewEventStore(pool, event.DefaultCatalog(), f.logger)
	txManager := postgres.NewTxManager(pool)

	f.logger.Info("Outbox configured",
		"lock_backend", f.cfg.Outbox.LockBackend, "handlers", registry.Len(), "relay", f.cfg.Outbox.RelayEnabled)

	return &Outbox{
		Store:      store,
		TxManager:  txManager,
		Accounts:   accounts,
		Cards:      postgres.NewCardRepository(pool),
		Dispatcher: dispatch.NewDispatcher(registry, store, locker, txManager, f.logger),
	}, nil
}

// handlers lists what the dispatcher runs. With the relay enabled every event
// also goes to Kafka: assignments after the email, anything else on its own.
func (f *Factory) handlers(accounts account.Reader) []event.Handler {
	assignment := handler.NewCardAssignment(accounts, email.NewLogSender(f.logger))
	if !f.cfg.Outbox.RelayEnabled {
		return []event.Handler{assignment}
	}
	relay := handler.NewRelay(f.KafkaProducer(), f.cfg.App.Name)
	return []event.Handler{
		handler.NewFanOut(event.CardAssignedType, assignment, relay),
		relay,
	}
}

func (f *Factory) Close() {
	if f.producer != nil {
		if err := f.producer.Close(); err != nil {
			f.logger.Error("failed to close kafka producer", "error", err)
		}
	}
	if f.pgPool != nil {
		f.pgPool.Close()
	}
	if f.redisCli != nil {
		f.redisCli.Close()
	}
}
