// Package redis holds the redis-backed event lock and the client it runs on.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Options maps the config onto client options. Lock calls are short, so
// reads fail fast instead of stalling a dispatch for the library default.
func (c Config) Options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// NewClient connects and pings; a client that cannot reach the server is
// closed and not returned.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(cfg.Options())

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}
