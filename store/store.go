// Package store defines the durable key-value persistence boundary
// spec.md §6 requires (get_package/put_package/list_jobs/put_job/
// get_unit_variables) and two implementations exercising it: an
// in-memory store grounded on session/memory.go and
// state/checkpoint.go's memoryCheckpointStore mutex-guarded-map pattern,
// and a durable Badger-backed store grounded on
// ternarybob-quaero/internal/storage/badger/job_storage.go.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ingestkit/engine/config"
	"github.com/ingestkit/engine/job"
)

// ErrPackageNotFound is returned by GetPackage for an unknown id, the
// PackageNotFound case spec.md §7 names for the RPC layer to surface.
var ErrPackageNotFound = errors.New("store: package not found")

// PackageRecord is the persisted shape of a bundle.Package: a plain,
// serializable snapshot rather than *bundle.Package itself, since the
// store is an opaque external collaborator (spec.md §1) that must not
// need to know about bundle's in-memory FileLister wiring.
type PackageRecord struct {
	ID          string
	Name        string
	SourceURL   string
	Stage       int
	CurrentPath string
	Config      config.ProcessingConfig
	Context     map[string]string
	ContextKeys []string // preserves replctx.Context's insertion order across a reload
	FinalStatus string
	CreatedAt   time.Time

	CurrentLinkID  string
	CurrentChainID string
	LinkHistory    []string
}

// TaskRecord is the persisted shape of a completed task.Task/task.Result
// pair, for the ListTasks RPC (spec.md §6). spec.md's own persisted-state
// list stops at jobs, but a Job's wire representation promises a Tasks
// list the reference engine keeps per job batch, so this store carries
// one entry per dispatched task rather than synthesizing it.
type TaskRecord struct {
	ID        string
	JobID     string
	FileUUID  string // the bundle.File this task was dispatched for, if any (spec.md §3)
	Filename  string
	Execution string
	Arguments string
	ExitCode  int
	Stdout    string
	Stderr    string
	Started   time.Time
	Ended     time.Time
	Err       string
}

// PersistenceStore is the durable KV boundary the engine depends on.
// Every method takes a context so a Badger-backed implementation can
// honor cancellation/deadlines on disk I/O.
type PersistenceStore interface {
	GetPackage(ctx context.Context, id string) (PackageRecord, error)
	PutPackage(ctx context.Context, rec PackageRecord) error

	ListJobs(ctx context.Context, packageID string) ([]job.Job, error)
	PutJob(ctx context.Context, j job.Job) error

	GetUnitVariables(ctx context.Context, packageID string) (map[string]string, error)

	ListTasks(ctx context.Context, jobID string) ([]TaskRecord, error)
	PutTask(ctx context.Context, rec TaskRecord) error
}
