// Package store defines the aggregate persistence interface. Each
// subsystem (queue, batch, lock, failed) defines its own store
// interface. The composite Store composes them all. The memory and
// Redis backends implement every subsystem; the Postgres backend covers
// the durable subset (batches and failed jobs).
package store

import (
	"context"

	"github.com/toporia/async/batch"
	"github.com/toporia/async/failed"
	"github.com/toporia/async/lock"
	"github.com/toporia/async/queue"
)

// Store is the aggregate persistence interface. Each subsystem store
// is a composable interface; a single backend implements all of them.
type Store interface {
	queue.Driver
	batch.Repository
	lock.Store
	failed.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
