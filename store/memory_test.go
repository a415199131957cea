package store

import (
	"context"
	"errors"
	"testing"

	"github.com/ingestkit/engine/job"
)

func TestMemoryStore_PutGetPackage(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := PackageRecord{ID: "pkg-1", Name: "demo", ContextKeys: []string{"a"}, Context: map[string]string{"a": "1"}}
	if err := s.PutPackage(ctx, rec); err != nil {
		t.Fatalf("PutPackage: %v", err)
	}

	got, err := s.GetPackage(ctx, "pkg-1")
	if err != nil {
		t.Fatalf("GetPackage: %v", err)
	}
	if got.Name != "demo" {
		t.Fatalf("Name = %q, want demo", got.Name)
	}
}

func TestMemoryStore_GetPackageNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetPackage(context.Background(), "missing")
	if !errors.Is(err, ErrPackageNotFound) {
		t.Fatalf("err = %v, want ErrPackageNotFound", err)
	}
}

func TestMemoryStore_PutJobThenListOrdersByInsertionAndUpdatesInPlace(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	j1 := job.Job{ID: "j1", PackageID: "pkg-1", LinkID: "a"}
	j2 := job.Job{ID: "j2", PackageID: "pkg-1", LinkID: "b"}
	_ = s.PutJob(ctx, j1)
	_ = s.PutJob(ctx, j2)

	jobs, err := s.ListJobs(ctx, "pkg-1")
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "j1" || jobs[1].ID != "j2" {
		t.Fatalf("ListJobs = %+v, want [j1, j2]", jobs)
	}

	j1.ExitCode = 3
	_ = s.PutJob(ctx, j1)
	jobs, _ = s.ListJobs(ctx, "pkg-1")
	if len(jobs) != 2 || jobs[0].ExitCode != 3 {
		t.Fatalf("expected in-place update, got %+v", jobs)
	}
}

func TestMemoryStore_UnitVariablesDerivedFromPackageContext(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	rec := PackageRecord{
		ID:          "pkg-1",
		ContextKeys: []string{"sipUUID", "transferDirectory"},
		Context:     map[string]string{"sipUUID": "abc", "transferDirectory": "/data"},
	}
	_ = s.PutPackage(ctx, rec)

	vars, err := s.GetUnitVariables(ctx, "pkg-1")
	if err != nil {
		t.Fatalf("GetUnitVariables: %v", err)
	}
	if vars["sipUUID"] != "abc" || vars["transferDirectory"] != "/data" {
		t.Fatalf("vars = %v", vars)
	}
}
