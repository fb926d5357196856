package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/toporia/async/batch"
	"github.com/toporia/async/job"
	"github.com/toporia/async/observability"
)

func newTestExtension(t *testing.T) (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("test")
	return observability.NewMetricsExtensionWithMeter(meter), reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m, ok := findMetric(rm, name)
	if !ok {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is not an int64 sum", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsExtension_CountsJobLifecycle(t *testing.T) {
	ext, reader := newTestExtension(t)
	ctx := context.Background()
	j := job.New("send-email", nil)

	if err := ext.OnJobEnqueued(ctx, j); err != nil {
		t.Fatalf("OnJobEnqueued: %v", err)
	}
	if err := ext.OnJobCompleted(ctx, j, 5*time.Millisecond); err != nil {
		t.Fatalf("OnJobCompleted: %v", err)
	}
	if err := ext.OnJobRetrying(ctx, j, 1, time.Now()); err != nil {
		t.Fatalf("OnJobRetrying: %v", err)
	}
	if err := ext.OnJobFailed(ctx, j, errors.New("boom")); err != nil {
		t.Fatalf("OnJobFailed: %v", err)
	}
	if err := ext.OnJobTimedOut(ctx, j); err != nil {
		t.Fatalf("OnJobTimedOut: %v", err)
	}

	rm := collectMetrics(t, reader)
	for name, want := range map[string]int64{
		"async.job.enqueued":          1,
		"async.job.completed":         1,
		"async.job.retried":           1,
		"async.job.terminal_failures": 1,
		"async.job.timeouts":          1,
	} {
		if got := counterValue(t, rm, name); got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
}

func TestMetricsExtension_RecordsCompletionLatency(t *testing.T) {
	ext, reader := newTestExtension(t)
	j := job.New("send-email", nil)

	if err := ext.OnJobCompleted(context.Background(), j, time.Millisecond); err != nil {
		t.Fatalf("OnJobCompleted: %v", err)
	}

	rm := collectMetrics(t, reader)
	m, ok := findMetric(rm, "async.job.latency")
	if !ok {
		t.Fatal("latency histogram not recorded")
	}
	hist, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("latency metric is not a float64 histogram")
	}
	if len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 1 {
		t.Error("expected one latency data point")
	}
}

func TestMetricsExtension_CountsBatchOutcomes(t *testing.T) {
	ext, reader := newTestExtension(t)
	ctx := context.Background()

	finished := batch.New("imports", 2)
	finished.FailedJobs = 1
	if err := ext.OnBatchFinished(ctx, finished); err != nil {
		t.Fatalf("OnBatchFinished: %v", err)
	}
	if err := ext.OnBatchCancelled(ctx, batch.New("aborted", 3)); err != nil {
		t.Fatalf("OnBatchCancelled: %v", err)
	}

	rm := collectMetrics(t, reader)
	if got := counterValue(t, rm, "async.batch.outcomes"); got != 2 {
		t.Errorf("async.batch.outcomes = %d, want 2", got)
	}
}

func TestMetricsExtension_DefaultProviderIsSafe(t *testing.T) {
	ext := observability.NewMetricsExtension()
	j := job.New("noop", nil)

	// Global provider defaults to no-op; hooks must still be callable.
	if err := ext.OnJobEnqueued(context.Background(), j); err != nil {
		t.Fatalf("OnJobEnqueued: %v", err)
	}
}
