package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emsp/internal/config"
	"emsp/internal/domain/event"
	"emsp/internal/handler"
	"emsp/internal/infrastructure/postgres"
	"emsp/internal/infrastructure/redis"
)

func TestFactory_LockerSelection(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Redis:  config.Redis{Addr: mr.Addr()},
		Outbox: config.Outbox{LockBackend: config.LockBackendPostgres, LockTimeout: time.Second, LockTTL: 5 * time.Second},
	}
	f := NewFactory(cfg, nil)
	defer f.Close()

	locker, err := f.Locker(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &postgres.RowLocker{}, locker)

	cfg.Outbox.LockBackend = config.LockBackendRedis
	locker, err = f.Locker(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &redis.Locker{}, locker)

	ok, err := locker.TryLock(context.Background(), "e1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("event_lock:e1"))

	cfg.Outbox.LockBackend = "etcd"
	_, err = f.Locker(context.Background())
	assert.Error(t, err)
}

func TestFactory_KafkaProducerIsShared(t *testing.T) {
	f := NewFactory(&config.Config{Kafka: config.Kafka{Brokers: []string{"localhost:9092"}, Topic: "card-events"}}, nil)
	defer f.Close()

	p := f.KafkaProducer()
	assert.Same(t, p, f.KafkaProducer())
	assert.Equal(t, "card-events", p.Topic())
}

func TestFactory_HandlersWithRelay(t *testing.T) {
	cfg := &config.Config{Kafka: config.Kafka{Brokers: []string{"localhost:9092"}, Topic: "card-events"}}
	f := NewFactory(cfg, nil)
	defer f.Close()

	handlers := f.handlers(nil)
	require.Len(t, handlers, 1)
	assert.IsType(t, &handler.CardAssignment{}, handlers[0])

	cfg.Outbox.RelayEnabled = true
	handlers = f.handlers(nil)
	require.Len(t, handlers, 2)
	assert.IsType(t, &handler.FanOut{}, handlers[0])
	assert.Same(t, event.CardAssignedType, handlers[0].Handles())
	assert.Same(t, event.Root, handlers[1].Handles())
}
