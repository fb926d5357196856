package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Config holds Redis connection settings, loadable from the environment
// via caarlos0/env.
type Config struct {
	Addr         string        `env:"ASYNC_REDIS_ADDR"          envDefault:"localhost:6379"`
	Password     string        `env:"ASYNC_REDIS_PASSWORD"      envDefault:""`
	DB           int           `env:"ASYNC_REDIS_DB"            envDefault:"0"`
	DialTimeout  time.Duration `env:"ASYNC_REDIS_DIAL_TIMEOUT"  envDefault:"5s"`
	PingRetries  int           `env:"ASYNC_REDIS_PING_RETRIES"  envDefault:"3"`
	PingInterval time.Duration `env:"ASYNC_REDIS_PING_INTERVAL" envDefault:"1s"`
}

// DefaultConfig returns a Config for a local Redis instance.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		DB:           0,
		DialTimeout:  5 * time.Second,
		PingRetries:  3,
		PingInterval: time.Second,
	}
}

// Connect opens a Redis client and verifies the connection, retrying the
// initial ping per the config before giving up.
func Connect(ctx context.Context, cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	var lastErr error
	attempts := max(cfg.PingRetries, 1)
	for i := 0; i < attempts; i++ {
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(cfg.PingInterval):
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("async/redis: connect %s: %w", cfg.Addr, lastErr)
}
