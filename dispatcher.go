package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/toporia/async/batch"
	"github.com/toporia/async/ext"
	"github.com/toporia/async/id"
	"github.com/toporia/async/job"
	"github.com/toporia/async/queue"
)

// Dispatcher is the entry point for submitting jobs. It routes each job
// to its queue through the configured driver, tracks deferred
// (after-response) dispatches, and creates batches.
//
// Create one with New() and functional options.
type Dispatcher struct {
	config Config
	logger *slog.Logger
	driver queue.Driver
	repo   batch.Repository
	hooks  *ext.Registry

	mu       sync.Mutex
	deferred []*job.Job
}

// New creates a Dispatcher. A queue driver is required.
func New(opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.driver == nil {
		return nil, errors.New("async: no queue driver configured")
	}
	return d, nil
}

// Logger returns the dispatcher's logger.
func (d *Dispatcher) Logger() *slog.Logger { return d.logger }

// Driver returns the dispatcher's queue driver.
func (d *Dispatcher) Driver() queue.Driver { return d.driver }

// Config returns a copy of the dispatcher's configuration.
func (d *Dispatcher) Config() Config { return d.config }

// Dispatch wraps a job in a single-use PendingDispatch builder. The job
// is submitted when the caller invokes Dispatch on the builder, or by
// Close as a fallback. Callers should defer Close immediately:
//
//	pd := d.Dispatch(j)
//	defer pd.Close()
func (d *Dispatcher) Dispatch(j *job.Job) *PendingDispatch {
	return &PendingDispatch{dispatcher: d, j: j}
}

// DispatchNow submits a job immediately, bypassing the builder.
func (d *Dispatcher) DispatchNow(ctx context.Context, j *job.Job) (id.JobID, error) {
	return d.submit(ctx, j)
}

// submit routes one job to the driver, honoring its delay, and emits
// the enqueued hook on success.
func (d *Dispatcher) submit(ctx context.Context, j *job.Job) (id.JobID, error) {
	queueName := j.Queue
	if queueName == "" {
		queueName = d.config.DefaultQueue
	}

	var (
		jobID id.JobID
		err   error
	)
	if j.Delay > 0 {
		jobID, err = d.driver.Later(ctx, j, j.Delay, queueName)
	} else {
		jobID, err = d.driver.Push(ctx, j, queueName)
	}
	if err != nil {
		return jobID, err
	}

	if d.hooks != nil {
		d.hooks.EmitJobEnqueued(ctx, j)
	}
	return jobID, nil
}

// enqueueDeferred parks a job until FlushDeferred runs.
func (d *Dispatcher) enqueueDeferred(j *job.Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deferred = append(d.deferred, j)
}

// FlushDeferred submits every job parked by AfterResponse dispatches.
// Hosts call it when the current unit of work completes. Submission
// errors are joined and returned after every job has been attempted.
func (d *Dispatcher) FlushDeferred(ctx context.Context) error {
	d.mu.Lock()
	pending := d.deferred
	d.deferred = nil
	d.mu.Unlock()

	var errs []error
	for _, j := range pending {
		if _, err := d.submit(ctx, j); err != nil {
			d.logger.Error("deferred dispatch failed",
				"job_id", j.ID,
				"job", j.Name,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("async: deferred dispatch %s: %w", j.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Batch creates a durable batch covering the given jobs, stamps each
// job with the batch ID, and dispatches them all concurrently. The i-th
// returned error position is not tracked; the first submission error
// cancels the remaining dispatches and is returned alongside the batch.
//
// Requires a batch repository.
func (d *Dispatcher) Batch(ctx context.Context, name string, jobs ...*job.Job) (*batch.Batch, error) {
	if d.repo == nil {
		return nil, ErrNoStore
	}

	b := batch.New(name, len(jobs), batch.WithRepository(d.repo))
	if err := d.repo.StoreBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("async: store batch: %w", err)
	}

	for _, j := range jobs {
		j.BatchID = b.ID
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		g.Go(func() error {
			_, err := d.submit(gctx, j)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return b, fmt.Errorf("async: dispatch batch %s: %w", b.ID, err)
	}
	return b, nil
}

// FindBatch loads a batch from the repository and attaches it so
// subsequent counter updates write through.
func (d *Dispatcher) FindBatch(ctx context.Context, batchID id.BatchID) (*batch.Batch, error) {
	if d.repo == nil {
		return nil, ErrNoStore
	}
	b, err := d.repo.FindBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	b.Attach(d.repo)
	return b, nil
}
