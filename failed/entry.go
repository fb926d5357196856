// Package failed records jobs that failed terminally — retry budget
// exhausted or a non-retryable error — so operators can inspect and
// replay them.
package failed

import (
	"time"

	"github.com/toporia/async/id"
)

// Entry represents a terminally failed job.
type Entry struct {
	ID          id.FailedID `json:"id"`
	JobID       id.JobID    `json:"job_id"`
	JobName     string      `json:"job_name"`
	Queue       string      `json:"queue"`
	Payload     []byte      `json:"payload"`
	Error       string      `json:"error"`
	Attempts    int         `json:"attempts"`
	MaxAttempts int         `json:"max_attempts"`
	TimedOut    bool        `json:"timed_out,omitempty"`
	BatchID     id.BatchID  `json:"batch_id,omitempty"`
	FailedAt    time.Time   `json:"failed_at"`
	ReplayedAt  *time.Time  `json:"replayed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
