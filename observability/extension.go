package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/toporia/async/batch"
	"github.com/toporia/async/ext"
	"github.com/toporia/async/job"
)

const meterName = "github.com/toporia/async/observability"

// Compile-time interface checks.
var (
	_ ext.Extension      = (*MetricsExtension)(nil)
	_ ext.JobEnqueued    = (*MetricsExtension)(nil)
	_ ext.JobCompleted   = (*MetricsExtension)(nil)
	_ ext.JobRetrying    = (*MetricsExtension)(nil)
	_ ext.JobFailed      = (*MetricsExtension)(nil)
	_ ext.JobTimedOut    = (*MetricsExtension)(nil)
	_ ext.BatchFinished  = (*MetricsExtension)(nil)
	_ ext.BatchCancelled = (*MetricsExtension)(nil)
)

// MetricsExtension records lifecycle counters for every queue. Register
// it to track enqueue rates, completion counts and latency, failure and
// retry rates, timeouts, and batch outcomes. Per-execution duration is
// already covered by the metrics middleware; this extension counts
// whole-lifecycle events, including ones no middleware sees (enqueue,
// batch finish).
type MetricsExtension struct {
	enqueued  metric.Int64Counter
	completed metric.Int64Counter
	retried   metric.Int64Counter
	failed    metric.Int64Counter
	timedOut  metric.Int64Counter
	batches   metric.Int64Counter
	latency   metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension using the global meter
// provider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.GetMeterProvider().Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the
// provided meter. Instrument creation errors leave the no-op instruments
// returned by the SDK in place.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	m := &MetricsExtension{}
	m.enqueued, _ = meter.Int64Counter("async.job.enqueued",
		metric.WithDescription("Jobs accepted onto a queue"))
	m.completed, _ = meter.Int64Counter("async.job.completed",
		metric.WithDescription("Jobs that finished successfully"))
	m.retried, _ = meter.Int64Counter("async.job.retried",
		metric.WithDescription("Failed attempts scheduled for retry"))
	m.failed, _ = meter.Int64Counter("async.job.terminal_failures",
		metric.WithDescription("Jobs that exhausted their retry budget"))
	m.timedOut, _ = meter.Int64Counter("async.job.timeouts",
		metric.WithDescription("Attempts cut off by their execution deadline"))
	m.batches, _ = meter.Int64Counter("async.batch.outcomes",
		metric.WithDescription("Batches that finished or were cancelled"))
	m.latency, _ = meter.Float64Histogram("async.job.latency",
		metric.WithDescription("Time from enqueue to successful completion in seconds"),
		metric.WithUnit("s"))
	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Job lifecycle hooks ─────────────────────────────

func (m *MetricsExtension) OnJobEnqueued(ctx context.Context, j *job.Job) error {
	m.enqueued.Add(ctx, 1, metric.WithAttributes(queueAttr(j)))
	return nil
}

func (m *MetricsExtension) OnJobCompleted(ctx context.Context, j *job.Job, _ time.Duration) error {
	attrs := metric.WithAttributes(queueAttr(j))
	m.completed.Add(ctx, 1, attrs)
	m.latency.Record(ctx, time.Since(j.CreatedAt).Seconds(), attrs)
	return nil
}

func (m *MetricsExtension) OnJobRetrying(ctx context.Context, j *job.Job, _ int, _ time.Time) error {
	m.retried.Add(ctx, 1, metric.WithAttributes(queueAttr(j)))
	return nil
}

func (m *MetricsExtension) OnJobFailed(ctx context.Context, j *job.Job, _ error) error {
	m.failed.Add(ctx, 1, metric.WithAttributes(queueAttr(j)))
	return nil
}

func (m *MetricsExtension) OnJobTimedOut(ctx context.Context, j *job.Job) error {
	m.timedOut.Add(ctx, 1, metric.WithAttributes(queueAttr(j)))
	return nil
}

// ── Batch lifecycle hooks ───────────────────────────

func (m *MetricsExtension) OnBatchFinished(ctx context.Context, b *batch.Batch) error {
	m.batches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("async.batch.outcome", "finished"),
		attribute.Bool("async.batch.has_failures", b.HasFailures()),
	))
	return nil
}

func (m *MetricsExtension) OnBatchCancelled(ctx context.Context, _ *batch.Batch) error {
	m.batches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("async.batch.outcome", "cancelled"),
	))
	return nil
}

func queueAttr(j *job.Job) attribute.KeyValue {
	return attribute.String("async.queue", j.Queue)
}
