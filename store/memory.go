package store

import (
	"context"
	"sync"

	"github.com/ingestkit/engine/job"
)

// memoryStore is a process-local PersistenceStore, mutex-guarded maps in
// the shape of session/memory.go's memorySession and
// state/checkpoint.go's memoryCheckpointStore. Checkpoints are lost on
// process exit — suitable for tests and development, not the resumable
// path spec.md §4.8 describes for production use (see NewBadgerStore).
type memoryStore struct {
	mu       sync.RWMutex
	packages map[string]PackageRecord
	jobs     map[string][]job.Job
	unitVars map[string]map[string]string
	tasks    map[string][]TaskRecord
}

// NewMemoryStore returns an in-memory PersistenceStore.
func NewMemoryStore() PersistenceStore {
	return &memoryStore{
		packages: make(map[string]PackageRecord),
		jobs:     make(map[string][]job.Job),
		unitVars: make(map[string]map[string]string),
		tasks:    make(map[string][]TaskRecord),
	}
}

func (s *memoryStore) GetPackage(_ context.Context, id string) (PackageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.packages[id]
	if !ok {
		return PackageRecord{}, ErrPackageNotFound
	}
	return rec, nil
}

func (s *memoryStore) PutPackage(_ context.Context, rec PackageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages[rec.ID] = rec
	vars := make(map[string]string, len(rec.ContextKeys))
	for _, k := range rec.ContextKeys {
		vars[k] = rec.Context[k]
	}
	s.unitVars[rec.ID] = vars
	return nil
}

func (s *memoryStore) ListJobs(_ context.Context, packageID string) ([]job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := s.jobs[packageID]
	out := make([]job.Job, len(jobs))
	copy(out, jobs)
	return out, nil
}

func (s *memoryStore) PutJob(_ context.Context, j job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.jobs[j.PackageID]
	for i, ex := range existing {
		if ex.ID == j.ID {
			existing[i] = j
			s.jobs[j.PackageID] = existing
			return nil
		}
	}
	s.jobs[j.PackageID] = append(existing, j)
	return nil
}

func (s *memoryStore) GetUnitVariables(_ context.Context, packageID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vars := s.unitVars[packageID]
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out, nil
}

func (s *memoryStore) ListTasks(_ context.Context, jobID string) ([]TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := s.tasks[jobID]
	out := make([]TaskRecord, len(tasks))
	copy(out, tasks)
	return out, nil
}

func (s *memoryStore) PutTask(_ context.Context, rec TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.tasks[rec.JobID]
	for i, ex := range existing {
		if ex.ID == rec.ID {
			existing[i] = rec
			s.tasks[rec.JobID] = existing
			return nil
		}
	}
	s.tasks[rec.JobID] = append(existing, rec)
	return nil
}
