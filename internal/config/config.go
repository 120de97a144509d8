package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	LockBackendPostgres = "postgres"
	LockBackendRedis    = "redis"
)

type Config struct {
	App      App      `yaml:"app"`
	HTTP     HTTP     `yaml:"http"`
	Log      Log      `yaml:"log"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Outbox   Outbox   `yaml:"outbox"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"emsp"`
	Version string `yaml:"version" env:"APP_VERSION" env-default:"1.0.0"`
}

type HTTP struct {
	Port        string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	MetricsPort string `yaml:"metrics_port" env:"METRICS_PORT" env-default:"9093"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"user"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"password"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-default:"emsp"`
	MaxConns int32  `yaml:"max_conns" env:"POSTGRES_MAX_CONNS" env-default:"10"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"card-events"`
}

type Outbox struct {
	LockBackend   string        `yaml:"lock_backend" env:"OUTBOX_LOCK_BACKEND" env-default:"postgres"`
	LockTimeout   time.Duration `yaml:"lock_timeout" env:"OUTBOX_LOCK_TIMEOUT" env-default:"1s"`
	LockTTL       time.Duration `yaml:"lock_ttl" env:"OUTBOX_LOCK_TTL" env-default:"5s"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"OUTBOX_SWEEP_INTERVAL" env-default:"5s"`
	GracePeriod   time.Duration `yaml:"grace_period" env:"OUTBOX_GRACE_PERIOD" env-default:"60s"`
	NotifyWorkers int           `yaml:"notify_workers" env:"OUTBOX_NOTIFY_WORKERS" env-default:"4"`
	NotifyQueue   int           `yaml:"notify_queue" env:"OUTBOX_NOTIFY_QUEUE" env-default:"256"`
	RelayEnabled  bool          `yaml:"relay_enabled" env:"OUTBOX_RELAY_ENABLED" env-default:"false"`
}

func New() (*Config, error) {
	return Load("config.yaml")
}

// Load reads path if it exists and lets env vars override it.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		// fallback to env vars if file not found
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	o := c.Outbox
	switch o.LockBackend {
	case LockBackendPostgres, LockBackendRedis:
	default:
		return fmt.Errorf("config error: unknown lock backend %q", o.LockBackend)
	}

	durations := map[string]time.Duration{
		"lock_timeout":   o.LockTimeout,
		"lock_ttl":       o.LockTTL,
		"sweep_interval": o.SweepInterval,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("config error: outbox %s must be positive, got %s", name, d)
		}
	}
	if o.LockTimeout < time.Millisecond {
		return fmt.Errorf("config error: outbox lock_timeout must be at least 1ms, got %s", o.LockTimeout)
	}
	if o.GracePeriod < 0 {
		return fmt.Errorf("config error: outbox grace_period must not be negative, got %s", o.GracePeriod)
	}
	if o.NotifyWorkers < 1 || o.NotifyQueue < 1 {
		return fmt.Errorf("config error: outbox notify pool needs at least one worker and one queue slot")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (l Log) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config error: unknown log level %q", l.Level)
	}
}
