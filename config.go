package async

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds configuration for the Dispatcher and the worker pool
// a host builds around it.
type Config struct {
	// DefaultQueue receives jobs that name no queue of their own.
	DefaultQueue string `env:"ASYNC_DEFAULT_QUEUE" envDefault:"default"`

	// Concurrency is the maximum number of jobs processed concurrently.
	Concurrency int `env:"ASYNC_CONCURRENCY" envDefault:"10"`

	// Queues is the list of queues a worker pool will poll.
	Queues []string `env:"ASYNC_QUEUES" envDefault:"default"`

	// PollInterval is how often workers poll for new jobs.
	PollInterval time.Duration `env:"ASYNC_POLL_INTERVAL" envDefault:"1s"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `env:"ASYNC_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CloseTimeout bounds the fallback dispatch performed by
	// PendingDispatch.Close when Dispatch was never called.
	CloseTimeout time.Duration `env:"ASYNC_CLOSE_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultQueue:    "default",
		Concurrency:     10,
		Queues:          []string{"default"},
		PollInterval:    1 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		CloseTimeout:    10 * time.Second,
	}
}

// ConfigFromEnv loads a Config from the environment. A .env file in the
// working directory is loaded first when present.
func ConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("async: parse config from env: %w", err)
	}
	return cfg, nil
}
