package async

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("async: no store configured")
	ErrStoreClosed = errors.New("async: store closed")

	// Not found errors.
	ErrJobNotFound         = errors.New("async: job not found")
	ErrBatchNotFound       = errors.New("async: batch not found")
	ErrFailedEntryNotFound = errors.New("async: failed entry not found")
	ErrScheduleNotFound    = errors.New("async: schedule entry not found")

	// Conflict errors.
	ErrJobAlreadyExists   = errors.New("async: job already exists")
	ErrBatchAlreadyExists = errors.New("async: batch already exists")

	// Dispatch errors.
	ErrAlreadyDispatched = errors.New("async: pending dispatch already resolved")
	ErrUnknownJob        = errors.New("async: job name not registered")

	// State errors.
	ErrBatchCancelled    = errors.New("async: batch cancelled")
	ErrAttemptsExhausted = errors.New("async: max attempts exhausted")
	ErrInvalidState      = errors.New("async: invalid state transition")
)
