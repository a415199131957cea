// Package task implements the leaf unit of work dispatched by a Job and the
// worker-pool backend that executes a batch of them, generalizing
// orchestrate/workflows/parallel.go's ProcessParallel from a generic item
// processor to task dispatch with per-task timeouts and always-collect
// (never fail-fast) semantics, per spec.md §4.3.
package task

import "time"

// TimeoutExitCode is the distinguished exit code assigned to a task that
// was cancelled after exceeding its wall-clock budget.
const TimeoutExitCode = -2

// Task is a pure descriptor: the backend, not the Task itself, is
// responsible for running it.
type Task struct {
	ID        string
	JobID     string // the Job this task belongs to, for ListTasks (spec.md §6)
	FileUUID  string // the bundle.File this task was dispatched for, if any (spec.md §3)
	Filename  string // the file's absolute path, for the same reason
	Execution string // name of the registered executor to invoke
	Arguments string // fully interpolated command line (see config package's Flatten/replctx.Replace)
	Timeout   time.Duration
}

// Result is what running a Task produced.
type Result struct {
	TaskID    string
	ExitCode  int
	Stdout    string
	Stderr    string
	Started   time.Time
	Ended     time.Time
	Err       error // non-nil only for transport-level failures, not a bad exit code
}
