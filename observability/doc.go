// Package observability provides a metrics extension that records
// system-wide lifecycle counters (enqueues, completions, failures,
// retries, timeouts, batch outcomes) via OpenTelemetry.
package observability
