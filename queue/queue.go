// Package queue defines the queue driver contract, the synchronous
// reference driver, and per-queue rate limiting for the worker pool.
package queue

import (
	"context"
	"time"

	"github.com/toporia/async/id"
	"github.com/toporia/async/job"
)

// Driver is the capability every queue backend must provide.
//
// Push submits a job for execution on the named queue and returns its ID.
// Later does the same with a delay before the job becomes runnable; every
// persistent driver MUST honor the delay. Pop claims the next runnable job
// (nil when the queue is empty), Size reports the number of stored jobs,
// and Clear drops them all.
type Driver interface {
	Push(ctx context.Context, j *job.Job, queue string) (id.JobID, error)
	Later(ctx context.Context, j *job.Job, delay time.Duration, queue string) (id.JobID, error)
	Pop(ctx context.Context, queue string) (*job.Job, error)
	Size(ctx context.Context, queue string) (int, error)
	Clear(ctx context.Context, queue string) error
}

// Invoker executes a job's handler with its dependencies resolved.
// The default implementation resolves handlers through a job.Registry;
// hosts with a DI container substitute their own.
type Invoker interface {
	Invoke(ctx context.Context, j *job.Job) error
}

// RegistryInvoker resolves handlers by job name from a registry.
type RegistryInvoker struct {
	Registry *job.Registry
}

var _ Invoker = (*RegistryInvoker)(nil)

// Invoke looks up and calls the handler registered for the job's name.
func (ri *RegistryInvoker) Invoke(ctx context.Context, j *job.Job) error {
	handler, ok := ri.Registry.Get(j.Name)
	if !ok {
		return &UnknownJobError{Name: j.Name}
	}
	return handler(ctx, j.Payload)
}

// UnknownJobError reports a job name with no registered handler.
type UnknownJobError struct {
	Name string
}

func (e *UnknownJobError) Error() string {
	return "async/queue: no handler registered for job " + e.Name
}
