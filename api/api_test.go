package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ingestkit/engine/bundle"
	"github.com/ingestkit/engine/config"
	"github.com/ingestkit/engine/engine"
	"github.com/ingestkit/engine/executor"
	"github.com/ingestkit/engine/queue"
	"github.com/ingestkit/engine/task"
	"github.com/ingestkit/engine/workflow"
)

const testWorkflowYAML = `
initiator_chain: main
links:
  - id: a
    manager: standard
    group: Verify checksums
    end: true
    standard:
      execution: stepA
    exit_codes:
      0: {next_link_id: "", job_status: completed_ok}
chains:
  - id: main
    link_ids: [a]
    start_link: a
`

type fakeLister struct{ n int }

func (f fakeLister) Files(pkg *bundle.Package, filter workflow.FileFilter) ([]bundle.File, error) {
	files := make([]bundle.File, f.n)
	for i := range files {
		files[i] = bundle.File{UUID: "f", AbsolutePath: "/data/f"}
	}
	return files, nil
}

func newTestService(t *testing.T) (*Service, *engine.Engine) {
	t.Helper()

	dir := t.TempDir()
	wfPath := filepath.Join(dir, "workflow.yaml")
	if err := os.WriteFile(wfPath, []byte(testWorkflowYAML), 0o644); err != nil {
		t.Fatalf("write workflow file: %v", err)
	}

	registry := executor.New()
	if err := registry.Register("stepA", func(ctx context.Context, tk task.Task) (task.Result, error) {
		return task.Result{ExitCode: 0}, nil
	}); err != nil {
		t.Fatalf("register executor: %v", err)
	}

	cfg := engine.DefaultConfig()
	cfg.WorkflowPath = wfPath
	cfg.UseMemoryStore = true
	cfg.Queue.MaxConcurrentPackages = 2
	cfg.Queue.MaxQueuedPackages = 16
	cfg.Queue.ShutdownDeadline = time.Second
	cfg.Batch.WorkerCap = 2
	cfg.Batch.DefaultTimeout = 5 * time.Second

	e, err := engine.New(cfg, engine.WithRegistry(registry), engine.WithFileLister(fakeLister{n: 2}))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return New(e), e
}

func waitForTerminal(t *testing.T, e *engine.Engine, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, active := e.Package(id); !active {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("package %s never reached terminal", id)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestService_SubmitAndRead(t *testing.T) {
	svc, e := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	defer func() {
		cancel()
		e.Shutdown()
	}()

	resp, err := svc.Submit(context.Background(), SubmitRequest{
		Name:      "pkg1",
		SourceURL: "file:///tmp/pkg1",
		Config:    config.DefaultProcessingConfig(),
		Class:     queue.ClassTransfer,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.ID == "" {
		t.Fatalf("Submit returned empty id")
	}

	waitForTerminal(t, e, resp.ID)

	read, err := svc.Read(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if read.Status != StatusComplete {
		t.Fatalf("Status = %v, want StatusComplete", read.Status)
	}
	if len(read.Jobs) != 1 || read.Jobs[0].LinkID != "a" {
		t.Fatalf("Jobs = %+v, want one entry for link a", read.Jobs)
	}
	if read.CurrentJobName != "Verify checksums" {
		t.Fatalf("CurrentJobName = %q, want %q", read.CurrentJobName, "Verify checksums")
	}
}

func TestService_SubmitRejectsMissingFields(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Submit(context.Background(), SubmitRequest{SourceURL: "file:///tmp"}); err == nil {
		t.Fatalf("Submit with empty name: want error")
	}
	if _, err := svc.Submit(context.Background(), SubmitRequest{Name: "pkg"}); err == nil {
		t.Fatalf("Submit with empty source url: want error")
	}
}

func TestService_ReadUnknownPackage(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Read(context.Background(), "does-not-exist"); err != ErrPackageNotFound {
		t.Fatalf("Read unknown id: err = %v, want ErrPackageNotFound", err)
	}
}

func TestService_ListTasks(t *testing.T) {
	svc, e := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	defer func() {
		cancel()
		e.Shutdown()
	}()

	resp, err := svc.Submit(context.Background(), SubmitRequest{
		Name:      "pkg2",
		SourceURL: "file:///tmp/pkg2",
		Config:    config.DefaultProcessingConfig(),
		Class:     queue.ClassTransfer,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForTerminal(t, e, resp.ID)

	read, err := svc.Read(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(read.Jobs) != 1 {
		t.Fatalf("Jobs = %+v, want one entry", read.Jobs)
	}

	tasks, err := svc.ListTasks(context.Background(), read.Jobs[0].ID)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("ListTasks = %+v, want 2 tasks (one per listed file)", tasks)
	}
	for _, tk := range tasks {
		if tk.Execution != "stepA" {
			t.Fatalf("task execution = %q, want stepA", tk.Execution)
		}
		if tk.ExitCode != 0 {
			t.Fatalf("task exit code = %d, want 0", tk.ExitCode)
		}
		if tk.FileUUID != "f" || tk.Filename != "/data/f" {
			t.Fatalf("task file attribution = %+v, want FileUUID=f Filename=/data/f", tk)
		}
	}
}
