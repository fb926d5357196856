package codec

import (
	"fmt"
	"time"

	"github.com/toporia/async/id"
	"github.com/toporia/async/job"
)

// envelope is the wire shape for a job. IDs travel as plain strings and
// durations as nanoseconds so every codec sees only primitive field types.
type envelope struct {
	ID          string     `json:"id" msgpack:"id"`
	Name        string     `json:"name" msgpack:"name"`
	Queue       string     `json:"queue" msgpack:"queue"`
	Payload     []byte     `json:"payload,omitempty" msgpack:"payload"`
	State       string     `json:"state" msgpack:"state"`
	Delay       int64      `json:"delay,omitempty" msgpack:"delay"`
	MaxAttempts int        `json:"max_attempts" msgpack:"max_attempts"`
	Attempts    int        `json:"attempts" msgpack:"attempts"`
	LastError   string     `json:"last_error,omitempty" msgpack:"last_error"`
	BatchID     string     `json:"batch_id,omitempty" msgpack:"batch_id"`
	Timeout     int64      `json:"timeout,omitempty" msgpack:"timeout"`
	RunAt       time.Time  `json:"run_at" msgpack:"run_at"`
	CreatedAt   time.Time  `json:"created_at" msgpack:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" msgpack:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" msgpack:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" msgpack:"completed_at"`
}

func toEnvelope(j *job.Job) *envelope {
	return &envelope{
		ID:          j.ID.String(),
		Name:        j.Name,
		Queue:       j.Queue,
		Payload:     j.Payload,
		State:       string(j.State),
		Delay:       int64(j.Delay),
		MaxAttempts: j.MaxAttempts,
		Attempts:    j.Attempts,
		LastError:   j.LastError,
		BatchID:     j.BatchID.String(),
		Timeout:     int64(j.Timeout),
		RunAt:       j.RunAt,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

func fromEnvelope(e *envelope) (*job.Job, error) {
	jobID, err := id.ParseJobID(e.ID)
	if err != nil {
		return nil, fmt.Errorf("async/codec: decode job id: %w", err)
	}

	batchID := id.Nil
	if e.BatchID != "" {
		batchID, err = id.ParseBatchID(e.BatchID)
		if err != nil {
			return nil, fmt.Errorf("async/codec: decode batch id: %w", err)
		}
	}

	return &job.Job{
		ID:          jobID,
		Name:        e.Name,
		Queue:       e.Queue,
		Payload:     e.Payload,
		State:       job.State(e.State),
		Delay:       time.Duration(e.Delay),
		MaxAttempts: e.MaxAttempts,
		Attempts:    e.Attempts,
		LastError:   e.LastError,
		BatchID:     batchID,
		Timeout:     time.Duration(e.Timeout),
		RunAt:       e.RunAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
	}, nil
}
