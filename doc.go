// Package async is a job reliability layer for Go: exactly-once dispatch,
// retry with computed backoff, batch progress accounting, and a
// store-backed execution guard against overlapping runs.
//
// Async is designed as a library, not a service. Import it, configure a
// queue driver, and register jobs as ordinary Go functions.
//
// # Quick Start
//
//	reg := job.NewRegistry()
//	job.RegisterDefinition(reg, sendEmail)
//
//	d, err := async.New(
//	    async.WithDriver(queue.NewSync(reg)),
//	)
//	if err != nil {
//	    // ...
//	}
//
//	pd := d.Dispatch(job.New("send-email", payload))
//	defer pd.Close()
//	pd.OnQueue("emails").Dispatch(ctx)
//
// # Architecture
//
// Async follows a composable store pattern where each subsystem (queue,
// batch, lock, failed) defines its own store interface. A single backend
// implements all of them.
//
// All entity IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package async
