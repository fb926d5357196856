package failed

import (
	"context"
	"time"

	"github.com/toporia/async/id"
)

// ListOpts filters and paginates ListFailed calls.
type ListOpts struct {
	Queue  string
	Limit  int
	Offset int
}

// Store persists failed-job entries. Method names carry a Failed
// suffix so a single store implementation can satisfy this interface
// alongside the queue driver and batch repository.
type Store interface {
	// PushFailed appends a failed-job entry.
	PushFailed(ctx context.Context, e *Entry) error

	// ListFailed returns entries matching opts, oldest first.
	ListFailed(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// GetFailed returns the entry with the given id.
	GetFailed(ctx context.Context, entryID id.FailedID) (*Entry, error)

	// ReplayFailed stamps ReplayedAt on the entry.
	ReplayFailed(ctx context.Context, entryID id.FailedID) error

	// PurgeFailed removes entries that failed before the cutoff and
	// returns the number removed.
	PurgeFailed(ctx context.Context, before time.Time) (int64, error)

	// CountFailed returns the number of stored entries.
	CountFailed(ctx context.Context) (int64, error)
}
