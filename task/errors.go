package task

import "fmt"

// BatchPartialFailure is returned by Backend.Submit when some, but not
// necessarily all, tasks in the batch failed to run (transport-level,
// not a nonzero exit code — a nonzero exit code is a normal Result, not
// an error). Per-task results are still returned alongside this error.
type BatchPartialFailure struct {
	FailedCount int
	Total       int
}

func (e *BatchPartialFailure) Error() string {
	return fmt.Sprintf("task: batch partial failure: %d/%d tasks failed to run", e.FailedCount, e.Total)
}

// BatchTransportError is returned by Backend.Submit when the worker pool
// itself could not be reached (e.g. shutting down) and no task in the
// batch could be dispatched at all.
type BatchTransportError struct {
	Detail string
}

func (e *BatchTransportError) Error() string {
	return fmt.Sprintf("task: batch transport error: %s", e.Detail)
}
