// Package redis implements the composite store backends over Redis for
// high-throughput ephemeral workloads. Queues use a List with a companion
// Sorted Set for delayed jobs, batches and failed entries are stored as
// Hashes, and execution-guard locks use SET NX with a TTL.
//
// Usage:
//
//	client, err := redisstore.Connect(ctx, redisstore.DefaultConfig())
//	if err != nil { ... }
//	s := redisstore.New(client)
package redis

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/toporia/async/batch"
	"github.com/toporia/async/codec"
	"github.com/toporia/async/failed"
	"github.com/toporia/async/lock"
	"github.com/toporia/async/queue"
)

// Compile-time interface checks.
var (
	_ queue.Driver     = (*Store)(nil)
	_ batch.Repository = (*Store)(nil)
	_ lock.Store       = (*Store)(nil)
	_ failed.Store     = (*Store)(nil)
)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithCodec sets the codec used to encode job transport envelopes.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) { s.codec = c }
}

// Store implements the queue driver, batch repository, lock store, and
// failed-job store backed by Redis.
type Store struct {
	client redis.Cmdable
	codec  codec.Codec
	logger *slog.Logger
}

// New creates a Redis-backed store. The caller owns the Redis client
// lifecycle. Jobs are transported as msgpack envelopes unless another
// codec is configured.
func New(client redis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client: client,
		codec:  &codec.Msgpack{},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() redis.Cmdable { return s.client }

// Migrate is a no-op for Redis (schemaless).
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op — the caller owns the Redis client lifecycle.
func (s *Store) Close() error { return nil }
