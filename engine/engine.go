// Package engine composes Workflow, PackageQueue, TaskBackend, and a
// PersistenceStore into the single owned value spec.md §9's Design Notes
// call for in place of the reference implementation's module-level
// singletons, grounded on kernel/kernel.go's config-driven New plus
// functional-option override pattern.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ingestkit/engine/bundle"
	"github.com/ingestkit/engine/config"
	"github.com/ingestkit/engine/executor"
	"github.com/ingestkit/engine/job"
	"github.com/ingestkit/engine/jobchain"
	"github.com/ingestkit/engine/metrics"
	"github.com/ingestkit/engine/observability"
	"github.com/ingestkit/engine/queue"
	"github.com/ingestkit/engine/store"
	"github.com/ingestkit/engine/task"
	"github.com/ingestkit/engine/workflow"
)

// Option configures an Engine after config-driven initialization,
// overriding a subsystem New would otherwise construct.
type Option func(*Engine)

// WithStore overrides the config-created PersistenceStore.
func WithStore(s store.PersistenceStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithRegistry overrides the default empty executor.Registry — callers
// register their concrete task executors (normalizers, identifiers,
// packagers) before passing the registry in, or register them afterward
// via Engine.Registry().
func WithRegistry(r *executor.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithFileLister overrides the default nil bundle.FileLister used for
// newly submitted packages.
func WithFileLister(l bundle.FileLister) Option {
	return func(e *Engine) { e.lister = l }
}

// WithMetrics overrides the default no-op metrics.Sink.
func WithMetrics(m metrics.Sink) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithObserver overrides the default no-op observability.Observer.
func WithObserver(o observability.Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// Engine is the top-level owned value: it holds the immutable Workflow,
// the PackageQueue scheduler, the TaskBackend worker pool, and a
// PersistenceStore, and is the sole entry point api.Submit/Read/ListTasks
// operate against.
type Engine struct {
	cfg      Config
	workflow *workflow.Workflow
	registry *executor.Registry
	backend  *task.Backend
	runner   *job.Runner
	queue    *queue.PackageQueue
	store    store.PersistenceStore
	metrics  metrics.Sink
	observer observability.Observer
	lister   bundle.FileLister

	mu       sync.Mutex
	packages map[string]*bundle.Package
}

// New constructs an Engine from cfg: loads the workflow, builds the
// TaskBackend over an executor.Registry, and wires a PackageQueue driving
// a job.Runner against both — the startup sequence spec.md §4.8 names
// ("load workflow → construct backend + queue → start worker pool → start
// processing loop"), stopping short of actually starting the processing
// loop (see Run).
func New(cfg Config, opts ...Option) (*Engine, error) {
	wf, err := workflow.LoadFile(cfg.WorkflowPath)
	if err != nil {
		return nil, fmt.Errorf("engine: load workflow: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		workflow: wf,
		registry: executor.New(),
		metrics:  metrics.NoOpSink{},
		observer: observability.NoOpObserver{},
		packages: make(map[string]*bundle.Package),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		if cfg.UseMemoryStore {
			e.store = store.NewMemoryStore()
		} else {
			s, err := store.NewBadgerStore(cfg.Badger)
			if err != nil {
				return nil, fmt.Errorf("engine: open store: %w", err)
			}
			e.store = s
		}
	}

	e.backend = task.NewBackend(e.registry,
		task.WithConfig(cfg.Batch),
		task.WithObserver(e.observer),
		task.WithMetrics(metrics.TaskDurationObserver{Sink: e.metrics}),
		task.WithRecorder(storeTaskRecorder{store: e.store}),
	)
	e.runner = &job.Runner{
		Workflow:       e.workflow,
		Backend:        e.backend,
		DefaultTimeout: cfg.Batch.DefaultTimeout,
		Observer:       e.observer,
		Reloader:       storeReloader{store: e.store},
	}
	e.queue = queue.New(
		queue.Config{
			MaxConcurrentPackages: cfg.Queue.MaxConcurrentPackages,
			MaxQueuedPackages:     cfg.Queue.MaxQueuedPackages,
			ShutdownDeadline:      shutdownDeadlineOrDefault(cfg.Queue.ShutdownDeadline),
		},
		e.runner,
		queue.WithMetrics(e.metrics),
		queue.WithObserver(e.observer),
		queue.WithTerminalHook(e.onPackageDone),
		queue.WithJobCompleteHook(e.onJobDone),
	)

	return e, nil
}

// Workflow returns the loaded workflow graph.
func (e *Engine) Workflow() *workflow.Workflow { return e.workflow }

// Registry returns the executor registry, for callers to register task
// executors before Run.
func (e *Engine) Registry() *executor.Registry { return e.registry }

// Store returns the persistence store.
func (e *Engine) Store() store.PersistenceStore { return e.store }

// Run starts the queue's scheduler loop and blocks until ctx is cancelled,
// at which point it calls Shutdown and returns once drained. This is the
// "start the processing loop" step of spec.md §4.8's startup sequence.
func (e *Engine) Run(ctx context.Context) {
	go e.queue.Work(ctx)
	<-ctx.Done()
	e.Shutdown()
}

// Shutdown stops the queue (spec.md §4.8's graceful shutdown: "signal
// handler calls queue.stop(); processing loop exits; worker pool is
// joined with a deadline") and closes the store if it supports it.
func (e *Engine) Shutdown() {
	e.queue.Stop()
	<-e.queue.Done()
	if closer, ok := e.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

// Submit creates a new Package rooted at the engine's workflow initiator and
// admits it into the queue under the given priority class, implementing
// the RPC surface's Submit (spec.md §6). Brand-new transfers are always
// ClassTransfer; resubmitting an already-ingested package (e.g. to
// produce a DIP) uses ClassSIP/ClassDIP so it is scheduled ahead of fresh
// transfer work, per spec.md §4.7's admission priority.
func (e *Engine) Submit(ctx context.Context, name, sourceURL string, cfg config.ProcessingConfig, class queue.Class) (*bundle.Package, error) {
	id := uuid.New().String()
	pkg := bundle.New(id, name, sourceURL, e.processingPath(id), cfg, e.lister)

	chain := jobchain.New(e.workflow, pkg.ID)
	if err := e.queue.Submit(pkg, class, chain); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.packages[pkg.ID] = pkg
	e.mu.Unlock()

	e.persist(ctx, pkg, chain)
	return pkg, nil
}

func (e *Engine) processingPath(id string) string {
	if e.cfg.ProcessingRoot == "" {
		return id
	}
	return e.cfg.ProcessingRoot + "/" + id
}

// Package returns the in-memory handle for a still-active package, for
// callers (api.Read) that want the live replacement context rather than
// the last-persisted PackageRecord snapshot.
func (e *Engine) Package(id string) (*bundle.Package, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pkg, ok := e.packages[id]
	return pkg, ok
}

func (e *Engine) onJobDone(pkg *bundle.Package, j *job.Job) {
	if err := e.store.PutJob(context.Background(), *j); err != nil {
		e.observer.OnEvent(context.Background(), observability.Event{
			Type:      "engine.put_job_failed",
			Level:     observability.LevelError,
			Timestamp: time.Now(),
			Source:    "engine.Engine.onJobDone",
			Data:      map[string]any{"job_id": j.ID, "package_id": pkg.ID, "error": err.Error()},
		})
	}
}

func (e *Engine) onPackageDone(pkg *bundle.Package, chain *jobchain.JobChain) {
	ctx := context.Background()
	e.persist(ctx, pkg, chain)
	e.mu.Lock()
	delete(e.packages, pkg.ID)
	e.mu.Unlock()
}

func (e *Engine) persist(ctx context.Context, pkg *bundle.Package, chain *jobchain.JobChain) {
	rec := store.PackageRecord{
		ID:             pkg.ID,
		Name:           pkg.Name,
		SourceURL:      pkg.SourceURL,
		Stage:          int(pkg.Stage),
		CurrentPath:    pkg.CurrentPath,
		Config:         pkg.Config,
		Context:        contextMap(pkg),
		ContextKeys:    pkg.Context.Keys(),
		FinalStatus:    string(pkg.FinalStatus),
		CreatedAt:      pkg.CreatedAt,
		CurrentLinkID:  chain.CurrentLink(),
		CurrentChainID: chain.CurrentChain(),
		LinkHistory:    chain.History(),
	}
	if err := e.store.PutPackage(ctx, rec); err != nil {
		e.observer.OnEvent(ctx, observability.Event{
			Type:      "engine.persist_failed",
			Level:     observability.LevelError,
			Timestamp: time.Now(),
			Source:    "engine.Engine.persist",
			Data:      map[string]any{"package_id": pkg.ID, "error": err.Error()},
		})
	}
}

// storeTaskRecorder adapts a store.PersistenceStore to task.Recorder,
// persisting each completed task for the ListTasks RPC (spec.md §6).
type storeTaskRecorder struct {
	store store.PersistenceStore
}

func (r storeTaskRecorder) RecordTask(jobID string, t task.Task, res task.Result) {
	errText := ""
	if res.Err != nil {
		errText = res.Err.Error()
	}
	rec := store.TaskRecord{
		ID:        t.ID,
		JobID:     jobID,
		FileUUID:  t.FileUUID,
		Filename:  t.Filename,
		Execution: t.Execution,
		Arguments: t.Arguments,
		ExitCode:  res.ExitCode,
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
		Started:   res.Started,
		Ended:     res.Ended,
		Err:       errText,
	}
	_ = r.store.PutTask(context.Background(), rec)
}

// storeReloader adapts a store.PersistenceStore to job.Reloader,
// implementing spec.md §4.2/§4.6's reload() called at each job boundary:
// it refreshes CurrentPath (and the path-derived replacement tokens) plus
// any unit variables persisted since the package was last loaded into
// memory, so a prior job's writes are visible even across a process
// restart between jobs.
type storeReloader struct {
	store store.PersistenceStore
}

func (r storeReloader) Reload(ctx context.Context, pkg *bundle.Package) error {
	rec, err := r.store.GetPackage(ctx, pkg.ID)
	if err != nil {
		if errors.Is(err, store.ErrPackageNotFound) {
			return nil // first job of a brand-new package: nothing persisted yet
		}
		return err
	}
	pkg.Reload(rec.CurrentPath)

	vars, err := r.store.GetUnitVariables(ctx, pkg.ID)
	if err != nil {
		return err
	}
	for k, v := range vars {
		pkg.Context = pkg.Context.Set(k, v)
	}
	return nil
}

func contextMap(pkg *bundle.Package) map[string]string {
	keys := pkg.Context.Keys()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := pkg.Context.Get(k); ok {
			out[k] = v
		}
	}
	return out
}
