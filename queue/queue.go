// Package queue implements PackageQueue — bounded concurrency over
// heterogeneous package classes (spec.md §4.7), generalizing
// orchestrate/hub/hub.go's registration-map-plus-mutex-plus-bounded-
// channel pattern from agent message routing to package/job scheduling.
// Per spec.md §9's Design Notes, completion is reported by explicit
// channel rather than a callback-on-future: runJob writes a jobResult
// onto q.results and Work is its sole reader.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ingestkit/engine/bundle"
	"github.com/ingestkit/engine/job"
	"github.com/ingestkit/engine/jobchain"
	"github.com/ingestkit/engine/metrics"
	"github.com/ingestkit/engine/observability"
)

// Config bounds one PackageQueue.
type Config struct {
	MaxConcurrentPackages int           // spec.md §4.7's active-set cap
	MaxQueuedPackages     int           // per-class waiting-queue cap, e.g. 4096
	ShutdownDeadline      time.Duration // Stop()'s grace period for in-flight jobs
}

// DefaultConfig matches spec.md §4.7's example sizes.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentPackages: 16,
		MaxQueuedPackages:     4096,
		ShutdownDeadline:      5 * time.Minute,
	}
}

type waitingItem struct {
	pkg   *bundle.Package
	chain *jobchain.JobChain
	first *job.Job
}

type tracked struct {
	pkg   *bundle.Package
	chain *jobchain.JobChain
}

type jobResult struct {
	packageID string
	j         *job.Job
	outcome   job.Outcome
	err       error
}

// TerminalHook is invoked once a package's JobChain reaches a terminal
// link (or fails out via RevisitCapExceeded / an unknown-link error),
// letting the engine persist final state and free any RPC waiters.
type TerminalHook func(pkg *bundle.Package, chain *jobchain.JobChain)

// JobCompleteHook is invoked after every Job.Run returns (terminal or
// not), letting the engine append to the package's persisted job history
// for the Read RPC's ordered jobs list (spec.md §6).
type JobCompleteHook func(pkg *bundle.Package, j *job.Job)

// PackageQueue is the scheduler described by spec.md §4.7: three waiting
// queues by priority class, a bounded active set, and a single scheduler
// goroutine (Work) that handles every job completion. Both are guarded by
// mu; Submit also admits into the active set or enqueues under it.
type PackageQueue struct {
	cfg       Config
	runner    *job.Runner
	metrics   metrics.Sink
	observer  observability.Observer
	onDone    TerminalHook
	onJobDone JobCompleteHook

	mu          sync.Mutex
	stopped     bool
	activeCount int
	active      map[string]*tracked
	waiting     [numClasses][]waitingItem

	activeJobs chan *job.Job
	results    chan jobResult

	stopCh chan struct{}
	doneCh chan struct{}
	wg     sync.WaitGroup
}

// Option configures a PackageQueue at construction.
type Option func(*PackageQueue)

func WithMetrics(m metrics.Sink) Option {
	return func(q *PackageQueue) { q.metrics = m }
}

func WithObserver(o observability.Observer) Option {
	return func(q *PackageQueue) { q.observer = o }
}

func WithTerminalHook(h TerminalHook) Option {
	return func(q *PackageQueue) { q.onDone = h }
}

func WithJobCompleteHook(h JobCompleteHook) Option {
	return func(q *PackageQueue) { q.onJobDone = h }
}

// New constructs a PackageQueue driving Jobs through runner.
func New(cfg Config, runner *job.Runner, opts ...Option) *PackageQueue {
	q := &PackageQueue{
		cfg:        cfg,
		runner:     runner,
		metrics:    metrics.NoOpSink{},
		observer:   observability.NoOpObserver{},
		active:     make(map[string]*tracked),
		activeJobs: make(chan *job.Job, cfg.MaxConcurrentPackages),
		results:    make(chan jobResult, cfg.MaxConcurrentPackages),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit registers a brand-new package under the given priority class and
// admits it immediately if concurrency allows, else enqueues it behind
// same-or-higher-priority waiters. chain must already be positioned at
// the package's first link (jobchain.New or jobchain.Resume).
func (q *PackageQueue) Submit(pkg *bundle.Package, class Class, chain *jobchain.JobChain) error {
	first, ok := chain.Next()
	if !ok {
		return fmt.Errorf("queue: package %s has no initial job", pkg.ID)
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrStopped
	}
	if _, exists := q.active[pkg.ID]; exists {
		q.mu.Unlock()
		return ErrAlreadyActive
	}
	for _, cls := range q.waiting {
		for _, w := range cls {
			if w.pkg.ID == pkg.ID {
				q.mu.Unlock()
				return ErrAlreadyActive
			}
		}
	}

	if q.activeCount < q.cfg.MaxConcurrentPackages {
		q.activateLocked(pkg, chain)
		q.mu.Unlock()
		return q.pushActive(first)
	}

	if len(q.waiting[class]) >= q.cfg.MaxQueuedPackages {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.waiting[class] = append(q.waiting[class], waitingItem{pkg: pkg, chain: chain, first: first})
	waitingLen := len(q.waiting[class])
	q.mu.Unlock()
	q.metrics.SetGauge("queue_waiting_packages", map[string]string{"class": class.String()}, float64(waitingLen))
	return nil
}

// activateLocked marks pkg active. Caller must hold q.mu.
func (q *PackageQueue) activateLocked(pkg *bundle.Package, chain *jobchain.JobChain) {
	q.active[pkg.ID] = &tracked{pkg: pkg, chain: chain}
	q.activeCount++
	q.metrics.SetGauge("queue_active_packages", nil, float64(q.activeCount))
}

// deactivateLocked removes pkg from the active set. Caller must hold q.mu.
func (q *PackageQueue) deactivateLocked(packageID string) {
	delete(q.active, packageID)
	q.activeCount--
	q.metrics.SetGauge("queue_active_packages", nil, float64(q.activeCount))
}

func (q *PackageQueue) pushActive(j *job.Job) error {
	select {
	case q.activeJobs <- j:
		return nil
	case <-q.stopCh:
		return ErrStopped
	}
}

// promoteLocked admits one waiting package (DIP, then SIP, then Transfer)
// if a concurrency slot is free. Caller must hold q.mu. Returns the job to
// push, if any — pushed by the caller after unlocking, since pushActive
// may block.
func (q *PackageQueue) promoteLocked() (*job.Job, bool) {
	if q.activeCount >= q.cfg.MaxConcurrentPackages {
		return nil, false
	}
	for cls := 0; cls < numClasses; cls++ {
		if len(q.waiting[cls]) == 0 {
			continue
		}
		item := q.waiting[cls][0]
		q.waiting[cls] = q.waiting[cls][1:]
		q.activateLocked(item.pkg, item.chain)
		return item.first, true
	}
	return nil, false
}

// Work runs the scheduler loop: pull admitted jobs and hand them to the
// runner on their own goroutine, reading completions off q.results and
// re-admitting continuations or promoting a waiter. It returns once Stop
// has been called and every in-flight job has finished or the shutdown
// deadline has elapsed.
func (q *PackageQueue) Work(ctx context.Context) {
	defer close(q.doneCh)
	for {
		select {
		case <-q.stopCh:
			q.drain(ctx)
			q.waitInFlight()
			return
		case j := <-q.activeJobs:
			q.dispatch(ctx, j)
		case res := <-q.results:
			q.complete(ctx, res)
		}
	}
}

func (q *PackageQueue) drain(ctx context.Context) {
	for {
		select {
		case j := <-q.activeJobs:
			q.dispatch(ctx, j)
		case res := <-q.results:
			q.complete(ctx, res)
		default:
			return
		}
	}
}

func (q *PackageQueue) waitInFlight() {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	deadline := time.After(q.cfg.ShutdownDeadline)
	for {
		select {
		case <-done:
			return
		case <-deadline:
			return
		case res := <-q.results:
			q.complete(context.Background(), res)
		}
	}
}

func (q *PackageQueue) dispatch(ctx context.Context, j *job.Job) {
	q.wg.Add(1)
	go q.runJob(ctx, j)
}

func (q *PackageQueue) runJob(ctx context.Context, j *job.Job) {
	defer q.wg.Done()
	q.mu.Lock()
	t, ok := q.active[j.PackageID]
	q.mu.Unlock()
	if !ok {
		return
	}
	outcome, err := q.runner.Run(ctx, t.pkg, j)
	q.results <- jobResult{packageID: j.PackageID, j: j, outcome: outcome, err: err}
}

// complete is called only from Work's goroutine; it touches the active set
// and waiting queues under mu, as Submit does (spec.md §5's
// shared-resource policy).
func (q *PackageQueue) complete(ctx context.Context, res jobResult) {
	q.mu.Lock()
	t, ok := q.active[res.packageID]
	q.mu.Unlock()
	if !ok {
		return
	}

	if q.onJobDone != nil {
		q.onJobDone(t.pkg, res.j)
	}

	if res.err != nil {
		q.finishPackage(t)
		return
	}

	if advErr := t.chain.Advance(res.outcome); advErr != nil {
		q.observer.OnEvent(ctx, observability.Event{
			Type:      "queue.revisit_cap_exceeded",
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "queue.PackageQueue.complete",
			Data:      map[string]any{"package_id": res.packageID, "error": advErr.Error()},
		})
		q.finishPackage(t)
		return
	}

	if t.chain.Done() {
		q.finishPackage(t)
		return
	}

	next, ok := t.chain.Next()
	if !ok {
		q.finishPackage(t)
		return
	}
	if err := q.pushActive(next); err != nil {
		q.finishPackage(t)
	}
}

func (q *PackageQueue) finishPackage(t *tracked) {
	q.mu.Lock()
	q.deactivateLocked(t.pkg.ID)
	next, promoted := q.promoteLocked()
	q.mu.Unlock()

	if q.onDone != nil {
		q.onDone(t.pkg, t.chain)
	}
	if promoted {
		_ = q.pushActive(next)
	}
}

// Stop signals the scheduler to stop admitting new work and drain
// in-flight jobs up to cfg.ShutdownDeadline, per spec.md §4.7/§4.8.
// Idempotent.
func (q *PackageQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()
	close(q.stopCh)
}

// Done returns a channel closed once Work has returned.
func (q *PackageQueue) Done() <-chan struct{} {
	return q.doneCh
}

// Snapshot reports current queue occupancy, for diagnostics/metrics.
func (q *PackageQueue) Snapshot() (active int, waiting [numClasses]int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.waiting {
		waiting[i] = len(q.waiting[i])
	}
	return q.activeCount, waiting
}
