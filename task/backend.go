package task

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/ingestkit/engine/observability"
)

// EventType constants emitted around batch dispatch, in the teacher's
// EventType-per-subsystem convention (orchestrate/workflows/error.go,
// state/events.go).
const (
	EventBatchStart    observability.EventType = "task.batch.start"
	EventTaskStart     observability.EventType = "task.task.start"
	EventTaskComplete  observability.EventType = "task.task.complete"
	EventBatchComplete observability.EventType = "task.batch.complete"
)

// Dispatcher runs a single task to completion. executor.Registry
// implements this.
type Dispatcher interface {
	Execute(ctx context.Context, t Task) (Result, error)
}

// MetricsSink receives per-task outcome observations. Defining it locally
// (rather than importing the metrics package) keeps task decoupled from
// any concrete metrics backend, mirroring the Observer abstraction.
type MetricsSink interface {
	ObserveTaskDuration(execution string, exitCode int, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveTaskDuration(string, int, time.Duration) {}

// Recorder persists a completed task's full Result, keeping task
// execution history (spec.md §6's ListTasks RPC) out of the Backend's own
// concerns the way MetricsSink keeps duration observation out of it.
type Recorder interface {
	RecordTask(jobID string, t Task, r Result)
}

type noopRecorder struct{}

func (noopRecorder) RecordTask(string, Task, Result) {}

// BatchConfig bounds one Backend.Submit call, following the teacher's
// Default*Config/Merge idiom (orchestrate/config).
type BatchConfig struct {
	MaxBatchSize   int           // spec.md §4.3: configurable, e.g. 128; chunks Submit's task slice
	WorkerCap      int           // upper bound on concurrent workers per chunk
	DefaultTimeout time.Duration // used when a Task.Timeout is zero
}

// DefaultBatchConfig matches spec.md §4.3's example batch size.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxBatchSize:   128,
		WorkerCap:      runtime.NumCPU() * 2,
		DefaultTimeout: 30 * time.Minute,
	}
}

// Merge returns a copy of c with any non-zero field in override applied.
func (c BatchConfig) Merge(override BatchConfig) BatchConfig {
	merged := c
	if override.MaxBatchSize != 0 {
		merged.MaxBatchSize = override.MaxBatchSize
	}
	if override.WorkerCap != 0 {
		merged.WorkerCap = override.WorkerCap
	}
	if override.DefaultTimeout != 0 {
		merged.DefaultTimeout = override.DefaultTimeout
	}
	return merged
}

// Backend is the executor pool running tasks generated by a Job: it
// batches, bounds concurrency, enforces per-task timeouts, and always
// collects every result before returning (spec.md §4.3: "failure of one
// task does not cancel siblings"). This generalizes
// orchestrate/workflows/parallel.go's ProcessParallel, dropping its
// fail-fast mode entirely since the domain never wants it.
type Backend struct {
	dispatcher Dispatcher
	cfg        BatchConfig
	observer   observability.Observer
	metrics    MetricsSink
	recorder   Recorder
}

// Option configures a Backend at construction, in the teacher's
// kernel.Option functional-option style.
type Option func(*Backend)

// WithConfig overrides the default BatchConfig.
func WithConfig(cfg BatchConfig) Option {
	return func(b *Backend) { b.cfg = DefaultBatchConfig().Merge(cfg) }
}

// WithObserver attaches an observability.Observer.
func WithObserver(o observability.Observer) Option {
	return func(b *Backend) { b.observer = o }
}

// WithMetrics attaches a MetricsSink.
func WithMetrics(m MetricsSink) Option {
	return func(b *Backend) { b.metrics = m }
}

// WithRecorder attaches a Recorder.
func WithRecorder(r Recorder) Option {
	return func(b *Backend) { b.recorder = r }
}

// NewBackend constructs a Backend dispatching tasks through d.
func NewBackend(d Dispatcher, opts ...Option) *Backend {
	b := &Backend{
		dispatcher: d,
		cfg:        DefaultBatchConfig(),
		observer:   observability.NoOpObserver{},
		metrics:    noopMetrics{},
		recorder:   noopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type indexedResult struct {
	index  int
	result Result
}

// Submit dispatches tasks as one or more bounded batches (chunked at
// cfg.MaxBatchSize, per spec.md §4.3's "bounded-size batch (configurable,
// e.g. 128 tasks)") and blocks until every task has a Result. Chunks run
// sequentially, one after another; within a chunk, up to cfg.WorkerCap
// tasks run concurrently. Results are returned in the same order as
// tasks, regardless of completion order.
//
// A BatchPartialFailure is returned when some tasks' Dispatcher.Execute
// call itself errored (transport, not exit code); a BatchTransportError
// is returned when none of the tasks across any chunk could be
// dispatched at all (e.g. context already cancelled). Both carry the
// Results collected so far so the Job can still fold whatever exit codes
// it received.
func (b *Backend) Submit(ctx context.Context, tasks []Task) ([]Result, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	chunkSize := b.cfg.MaxBatchSize
	if chunkSize < 1 {
		chunkSize = len(tasks)
	}

	results := make([]Result, len(tasks))
	totalDispatched := 0
	totalFailed := 0

	for offset := 0; offset < len(tasks); offset += chunkSize {
		end := min(offset+chunkSize, len(tasks))
		chunk := tasks[offset:end]

		dispatched, failed := b.runBatch(ctx, chunk, results[offset:end])
		totalDispatched += dispatched
		totalFailed += failed
	}

	if totalDispatched == 0 {
		return results, &BatchTransportError{Detail: "no task in the batch could be dispatched"}
	}
	if totalFailed > 0 {
		return results, &BatchPartialFailure{FailedCount: totalFailed, Total: len(tasks)}
	}
	return results, nil
}

// runBatch dispatches one chunk of tasks, bounded by cfg.WorkerCap
// concurrent workers, writing each Result into out at the task's index
// within the chunk. It returns the number of tasks actually dispatched
// and the number that failed.
func (b *Backend) runBatch(ctx context.Context, tasks []Task, out []Result) (dispatched, failed int) {
	if ctx.Err() != nil {
		return 0, 0
	}

	workerCount := min(b.cfg.WorkerCap, len(tasks))
	if workerCount < 1 {
		workerCount = 1
	}

	b.observer.OnEvent(ctx, observability.Event{
		Type:      EventBatchStart,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "task.Backend.Submit",
		Data: map[string]any{
			"task_count":   len(tasks),
			"worker_count": workerCount,
		},
	})

	workQueue := make(chan int, len(tasks))
	resultChannel := make(chan indexedResult, len(tasks))

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.worker(ctx, tasks, workQueue, resultChannel)
		}()
	}

	for i := range tasks {
		workQueue <- i
	}
	close(workQueue)

	wg.Wait()
	close(resultChannel)

	for r := range resultChannel {
		dispatched++
		out[r.index] = r.result
		if r.result.Err != nil {
			failed++
		}
	}

	b.observer.OnEvent(ctx, observability.Event{
		Type:      EventBatchComplete,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "task.Backend.Submit",
		Data: map[string]any{
			"task_count":   len(tasks),
			"failed_count": failed,
		},
	})

	return dispatched, failed
}

func (b *Backend) worker(ctx context.Context, tasks []Task, workQueue <-chan int, resultChannel chan<- indexedResult) {
	for i := range workQueue {
		t := tasks[i]
		resultChannel <- indexedResult{index: i, result: b.run(ctx, t)}
	}
}

func (b *Backend) run(ctx context.Context, t Task) Result {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = b.cfg.DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	b.observer.OnEvent(ctx, observability.Event{
		Type:      EventTaskStart,
		Level:     observability.LevelVerbose,
		Timestamp: started,
		Source:    "task.Backend.run",
		Data:      map[string]any{"task_id": t.ID, "execution": t.Execution},
	})

	result, err := b.dispatcher.Execute(runCtx, t)
	result.TaskID = t.ID
	result.Started = started
	result.Ended = time.Now()

	if runCtx.Err() == context.DeadlineExceeded {
		result.ExitCode = TimeoutExitCode
		result.Err = nil
	} else {
		result.Err = err
	}

	b.metrics.ObserveTaskDuration(t.Execution, result.ExitCode, result.Ended.Sub(result.Started))
	b.recorder.RecordTask(t.JobID, t, result)

	b.observer.OnEvent(ctx, observability.Event{
		Type:      EventTaskComplete,
		Level:     observability.LevelVerbose,
		Timestamp: result.Ended,
		Source:    "task.Backend.run",
		Data: map[string]any{
			"task_id":   t.ID,
			"execution": t.Execution,
			"exit_code": result.ExitCode,
			"error":     result.Err != nil,
		},
	})

	return result
}
