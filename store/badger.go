package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ingestkit/engine/job"
	"github.com/timshannon/badgerhold/v4"
)

// packageEntry and jobEntry are the badgerhold-managed record shapes.
// badgerhold indexes by the exported field tagged `badgerholdKey`, set to
// ID, following ternarybob-quaero/internal/storage/badger/job_storage.go's
// Upsert(id, record) convention.
type packageEntry struct {
	ID     string `badgerholdKey:"ID"`
	Record PackageRecord
}

type jobEntry struct {
	ID        string `badgerholdKey:"ID"`
	PackageID string `badgerholdIndex:"PackageID"`
	Job       job.Job
}

type taskEntry struct {
	ID    string `badgerholdKey:"ID"`
	JobID string `badgerholdIndex:"JobID"`
	Task  TaskRecord
}

// badgerStore is a durable PersistenceStore backed by an embedded
// badgerhold store, grounded directly on
// ternarybob-quaero/internal/storage/badger/job_storage.go's
// Upsert/Get/Find-by-query shape.
type badgerStore struct {
	store *badgerhold.Store
}

// BadgerConfig configures the embedded database location, mirroring
// ternarybob-quaero's common.BadgerConfig/NewBadgerDB options.
type BadgerConfig struct {
	Path           string
	ResetOnStartup bool
}

// NewBadgerStore opens (creating if absent) a durable PersistenceStore at
// cfg.Path.
func NewBadgerStore(cfg BadgerConfig) (PersistenceStore, error) {
	if cfg.ResetOnStartup {
		if _, err := os.Stat(cfg.Path); err == nil {
			if err := os.RemoveAll(cfg.Path); err != nil {
				return nil, fmt.Errorf("store: reset %s: %w", cfg.Path, err)
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = cfg.Path
	options.ValueDir = cfg.Path
	options.Logger = nil

	bh, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("store: open badger at %s: %w", cfg.Path, err)
	}
	return &badgerStore{store: bh}, nil
}

// Close releases the underlying database handle.
func (s *badgerStore) Close() error {
	return s.store.Close()
}

func (s *badgerStore) GetPackage(_ context.Context, id string) (PackageRecord, error) {
	var entry packageEntry
	if err := s.store.Get(id, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return PackageRecord{}, ErrPackageNotFound
		}
		return PackageRecord{}, fmt.Errorf("store: get package %s: %w", id, err)
	}
	return entry.Record, nil
}

func (s *badgerStore) PutPackage(_ context.Context, rec PackageRecord) error {
	if err := s.store.Upsert(rec.ID, &packageEntry{ID: rec.ID, Record: rec}); err != nil {
		return fmt.Errorf("store: put package %s: %w", rec.ID, err)
	}
	return nil
}

func (s *badgerStore) ListJobs(_ context.Context, packageID string) ([]job.Job, error) {
	var entries []jobEntry
	if err := s.store.Find(&entries, badgerhold.Where("PackageID").Eq(packageID)); err != nil {
		return nil, fmt.Errorf("store: list jobs for %s: %w", packageID, err)
	}
	jobs := make([]job.Job, len(entries))
	for i, e := range entries {
		jobs[i] = e.Job
	}
	return jobs, nil
}

func (s *badgerStore) PutJob(_ context.Context, j job.Job) error {
	if err := s.store.Upsert(j.ID, &jobEntry{ID: j.ID, PackageID: j.PackageID, Job: j}); err != nil {
		return fmt.Errorf("store: put job %s: %w", j.ID, err)
	}
	return nil
}

func (s *badgerStore) ListTasks(_ context.Context, jobID string) ([]TaskRecord, error) {
	var entries []taskEntry
	if err := s.store.Find(&entries, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return nil, fmt.Errorf("store: list tasks for %s: %w", jobID, err)
	}
	tasks := make([]TaskRecord, len(entries))
	for i, e := range entries {
		tasks[i] = e.Task
	}
	return tasks, nil
}

func (s *badgerStore) PutTask(_ context.Context, rec TaskRecord) error {
	if err := s.store.Upsert(rec.ID, &taskEntry{ID: rec.ID, JobID: rec.JobID, Task: rec}); err != nil {
		return fmt.Errorf("store: put task %s: %w", rec.ID, err)
	}
	return nil
}

func (s *badgerStore) GetUnitVariables(ctx context.Context, packageID string) (map[string]string, error) {
	rec, err := s.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	vars := make(map[string]string, len(rec.ContextKeys))
	for _, k := range rec.ContextKeys {
		vars[k] = rec.Context[k]
	}
	return vars, nil
}
