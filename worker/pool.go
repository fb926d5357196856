package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/toporia/async/ext"
	"github.com/toporia/async/id"
	"github.com/toporia/async/job"
	"github.com/toporia/async/queue"
)

// QueueManager gates job execution per queue: concurrency caps and rate
// limits. The worker pool calls Acquire before executing a popped job
// and Release after execution completes. Satisfied by queue.Manager.
type QueueManager interface {
	// Acquire checks rate limits and concurrency for the queue.
	// Returns true if the job is allowed to proceed.
	Acquire(queue string) bool
	// Release decrements the active count for the queue.
	Release(queue string)
}

// Pool manages a set of concurrent worker goroutines that poll the
// queue driver and execute jobs through the Executor.
type Pool struct {
	driver       queue.Driver
	executor     *Executor
	extensions   *ext.Registry
	concurrency  int
	queues       []string
	pollInterval time.Duration
	workerID     id.WorkerID
	logger       *slog.Logger

	// Queue manager (optional).
	queueManager QueueManager

	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
	activeJobs map[string]context.CancelFunc
	activeMu   sync.Mutex
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of concurrent worker goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithPoolQueues sets the queues the pool will poll.
func WithPoolQueues(queues []string) PoolOption {
	return func(p *Pool) { p.queues = queues }
}

// WithPollInterval sets how often workers poll for new jobs.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.pollInterval = d }
}

// WithQueueManager sets the queue manager for rate limiting and
// concurrency control.
func WithQueueManager(m QueueManager) PoolOption {
	return func(p *Pool) { p.queueManager = m }
}

// NewPool creates a worker pool.
func NewPool(
	driver queue.Driver,
	executor *Executor,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool {
	p := &Pool{
		driver:       driver,
		executor:     executor,
		extensions:   extensions,
		concurrency:  10,
		queues:       []string{job.DefaultQueue},
		pollInterval: time.Second,
		workerID:     id.NewWorkerID(),
		logger:       logger,
		stopCh:       make(chan struct{}),
		activeJobs:   make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WorkerID returns the pool's unique worker identifier.
func (p *Pool) WorkerID() id.WorkerID { return p.workerID }

// Start launches the worker goroutines. It returns immediately.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})

	p.logger.Info("worker pool starting",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("concurrency", p.concurrency),
		slog.Any("queues", p.queues),
	)

	for range p.concurrency {
		p.wg.Add(1)
		go p.pollLoop()
	}

	return nil
}

// Stop signals all workers to stop and waits for them to finish.
// If the context has a deadline, active jobs are cancelled when time
// runs out.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info("worker pool stopping", slog.String("worker_id", p.workerID.String()))

	// Signal all workers to stop.
	close(p.stopCh)

	// Wait for completion or context deadline.
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, cancelling active jobs")
		p.cancelActiveJobs()
		p.wg.Wait()
	}

	p.extensions.EmitShutdown(ctx)
	return nil
}

// pollLoop is run by each worker goroutine. It round-robins over the
// configured queues, claiming at most one job per pass.
func (p *Pool) pollLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		claimed := false
		for _, queueName := range p.queues {
			if p.runOne(queueName) {
				claimed = true
			}

			select {
			case <-p.stopCh:
				return
			default:
			}
		}

		if !claimed {
			p.sleep()
		}
	}
}

// runOne pops and executes at most one job from the queue. Returns
// true when a job was claimed.
func (p *Pool) runOne(queueName string) bool {
	j, err := p.driver.Pop(context.Background(), queueName)
	if err != nil {
		p.logger.Error("pop error",
			slog.String("queue", queueName),
			slog.String("error", err.Error()),
		)
		return false
	}
	if j == nil {
		return false
	}

	// Check queue rate limit and concurrency.
	if p.queueManager != nil && !p.queueManager.Acquire(j.Queue) {
		// Gated: return the job to the queue with a small delay.
		j.State = job.StatePending
		if _, pushErr := p.driver.Later(context.Background(), j, p.pollInterval, j.Queue); pushErr != nil {
			p.logger.Error("failed to re-enqueue gated job",
				slog.String("job_id", j.ID.String()),
				slog.String("error", pushErr.Error()),
			)
		}
		return false
	}

	p.extensions.EmitJobStarted(context.Background(), j)

	ctx, cancel := context.WithCancel(context.Background())
	p.trackJob(j.ID.String(), cancel)

	if execErr := p.executor.Execute(ctx, j); execErr != nil {
		p.logger.Debug("job execution failed",
			slog.String("job_id", j.ID.String()),
			slog.String("job_name", j.Name),
			slog.String("error", execErr.Error()),
		)
	}

	p.untrackJob(j.ID.String())
	cancel()

	if p.queueManager != nil {
		p.queueManager.Release(j.Queue)
	}
	return true
}

func (p *Pool) sleep() {
	select {
	case <-time.After(p.pollInterval):
	case <-p.stopCh:
	}
}

func (p *Pool) trackJob(jobID string, cancel context.CancelFunc) {
	p.activeMu.Lock()
	p.activeJobs[jobID] = cancel
	p.activeMu.Unlock()
}

func (p *Pool) untrackJob(jobID string) {
	p.activeMu.Lock()
	delete(p.activeJobs, jobID)
	p.activeMu.Unlock()
}

func (p *Pool) cancelActiveJobs() {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	for jobID, cancel := range p.activeJobs {
		p.logger.Warn("cancelling active job", slog.String("job_id", jobID))
		cancel()
	}
}
