package jobs

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueFull is returned by Submit when no worker can accept the job.
	ErrQueueFull = errors.New("report queue is full")
	// ErrPoolStopped is returned by Submit once the pool is shutting down.
	ErrPoolStopped = errors.New("report pool is stopped")
)

// StoreError is a failure confined to one store of a job. The store is
// skipped and the job continues.
type StoreError struct {
	StoreID string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.StoreID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// InitError is a failure to load the data a job needs before any store is
// computed. The job is marked Failed.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("report initialization: %v", e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }
