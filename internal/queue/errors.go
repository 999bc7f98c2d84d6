package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a job id is unknown.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidArgs is returned when job arguments fail validation.
	ErrInvalidArgs = errors.New("invalid job arguments")
	// ErrDuplicateJob is returned when a singleton job already has a live instance.
	ErrDuplicateJob = errors.New("job already active")
	// ErrNotRunning is returned when a worker writes to a job it no longer owns.
	ErrNotRunning = errors.New("job is not running")
)

// DuplicateJobError identifies the live job that blocked a singleton enqueue.
type DuplicateJobError struct {
	Key        string
	ExistingID string
}

func (e *DuplicateJobError) Error() string {
	if e.ExistingID == "" {
		return ErrDuplicateJob.Error()
	}
	return fmt.Sprintf("%s as %s", ErrDuplicateJob, e.ExistingID)
}

func (e *DuplicateJobError) Is(target error) bool {
	return target == ErrDuplicateJob
}
