package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ingestkit/engine/config"
	"github.com/ingestkit/engine/workflow"
)

func TestNew_SeedsTransferReplacements(t *testing.T) {
	p := New("pkg-1", "My Transfer", "file:///tmp", "/data/pkg-1", config.DefaultProcessingConfig(), nil)

	if v, ok := p.Context.Get("transferDirectory"); !ok || v != "/data/pkg-1" {
		t.Fatalf("transferDirectory = %q, %v", v, ok)
	}
	if _, ok := p.Context.Get("SIPDirectory"); ok {
		t.Fatalf("SIPDirectory should not be set before StartIngest")
	}
	if v, ok := p.Context.Get("config:normalize"); !ok || v != "1" {
		t.Fatalf("config:normalize = %q, %v", v, ok)
	}
}

func TestStartIngest_SwapsTokenNames(t *testing.T) {
	p := New("pkg-1", "t", "u", "/data/pkg-1", config.DefaultProcessingConfig(), nil)
	p.StartIngest()

	if p.Stage != StageIngest {
		t.Fatalf("Stage = %v, want StageIngest", p.Stage)
	}
	if v, ok := p.Context.Get("SIPDirectory"); !ok || v != "/data/pkg-1" {
		t.Fatalf("SIPDirectory = %q, %v", v, ok)
	}
}

func TestStartIngest_Idempotent(t *testing.T) {
	p := New("pkg-1", "t", "u", "/data/pkg-1", config.DefaultProcessingConfig(), nil)
	p.StartIngest()
	before := p.Context
	p.StartIngest()
	if p.Context != before {
		t.Fatalf("second StartIngest call should be a no-op")
	}
}

func TestReload_RefreshesCurrentPath(t *testing.T) {
	p := New("pkg-1", "t", "u", "/data/old", config.DefaultProcessingConfig(), nil)
	p.Reload("/data/new")

	if p.CurrentPath != "/data/new" {
		t.Fatalf("CurrentPath = %q, want /data/new", p.CurrentPath)
	}
	if v, _ := p.Context.Get("transferDirectory"); v != "/data/new" {
		t.Fatalf("transferDirectory = %q, want /data/new", v)
	}
}

func TestRecordAndGetDecision(t *testing.T) {
	p := New("pkg-1", "t", "u", "/data/pkg-1", config.DefaultProcessingConfig(), nil)
	if _, ok := p.Decision("link-a"); ok {
		t.Fatalf("expected no decision recorded yet")
	}
	p.RecordDecision("link-a", "normalize")
	v, ok := p.Decision("link-a")
	if !ok || v != "normalize" {
		t.Fatalf("Decision(link-a) = %q, %v", v, ok)
	}
}

func TestWalkLister_MergesCatalogAndFilesystem(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New("pkg-1", "t", "u", dir, config.DefaultProcessingConfig(), nil)
	lister := &WalkLister{}
	files, err := lister.Files(p, workflow.FileFilter{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len(files) = %d, want 2: %+v", len(files), files)
	}
	if files[0].AbsolutePath > files[1].AbsolutePath {
		t.Fatalf("expected directory order, got %+v", files)
	}
}

func TestWalkLister_SkipsMissingCatalogEntries(t *testing.T) {
	dir := t.TempDir()
	catalog := &fakeCatalog{files: []File{{UUID: "gone", AbsolutePath: filepath.Join(dir, "missing.txt")}}}
	p := New("pkg-1", "t", "u", dir, config.DefaultProcessingConfig(), nil)

	lister := &WalkLister{Catalog: catalog}
	files, err := lister.Files(p, workflow.FileFilter{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected missing catalog entry skipped, got %+v", files)
	}
}

type fakeCatalog struct{ files []File }

func (f *fakeCatalog) CatalogFiles(packageID string) ([]File, error) {
	return f.files, nil
}
