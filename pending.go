package async

import (
	"context"
	"fmt"
	"time"

	"github.com/toporia/async/id"
	"github.com/toporia/async/job"
)

// PendingDispatch is a short-lived, single-use builder wrapping one job
// and one dispatcher. It guarantees the job is submitted exactly once:
// either by an explicit Dispatch call, or by Close as a fallback when
// the owning scope ends without one. "Build and forget" never silently
// drops work as long as Close is deferred.
//
// Not safe for concurrent use; a PendingDispatch belongs to one call
// site.
type PendingDispatch struct {
	dispatcher *Dispatcher
	j          *job.Job

	afterResponse bool
	dispatched    bool
}

// OnQueue routes the job to the named queue. No-op when the job does
// not implement job.Queueable.
func (p *PendingDispatch) OnQueue(name string) *PendingDispatch {
	if q, ok := any(p.j).(job.Queueable); ok {
		q.SetQueue(name)
	}
	return p
}

// Delay defers the job's first execution. No-op when the job does not
// implement job.Queueable.
func (p *PendingDispatch) Delay(d time.Duration) *PendingDispatch {
	if q, ok := any(p.j).(job.Queueable); ok {
		q.SetDelay(d)
	}
	return p
}

// AfterResponse marks the job for deferred submission: Dispatch parks
// it on the dispatcher instead of submitting, and the host's
// FlushDeferred call at the end of the unit of work performs the real
// enqueue.
func (p *PendingDispatch) AfterResponse() *PendingDispatch {
	p.afterResponse = true
	return p
}

// Dispatch performs the submission exactly once. A second call is a
// silent no-op returning a zero ID and nil error.
func (p *PendingDispatch) Dispatch(ctx context.Context) (id.JobID, error) {
	if p.dispatched {
		return id.JobID{}, nil
	}
	p.dispatched = true

	if p.afterResponse {
		p.dispatcher.enqueueDeferred(p.j)
		return p.j.ID, nil
	}
	return p.dispatcher.submit(ctx, p.j)
}

// Close performs the fallback dispatch when Dispatch was never called.
// Errors and panics on this path are reported to the dispatcher's log
// sink and never propagate: Close runs at a point in the caller's
// control flow (usually a defer) where an unrelated failure must not
// interrupt it.
func (p *PendingDispatch) Close() {
	if p.dispatched {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.dispatcher.logger.Error("panic during fallback dispatch",
				"job_id", p.j.ID,
				"job", p.j.Name,
				"panic", fmt.Sprint(r),
			)
		}
	}()

	ctx := context.Background()
	if t := p.dispatcher.config.CloseTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	if _, err := p.Dispatch(ctx); err != nil {
		p.dispatcher.logger.Error("fallback dispatch failed",
			"job_id", p.j.ID,
			"job", p.j.Name,
			"error", err,
		)
	}
}
