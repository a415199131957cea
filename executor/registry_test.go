package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/ingestkit/engine/task"
)

func echoHandler(ctx context.Context, t task.Task) (task.Result, error) {
	return task.Result{ExitCode: 0, Stdout: t.Arguments}, nil
}

func TestRegistry_RegisterGetExecute(t *testing.T) {
	r := New()
	if err := r.Register("echo", echoHandler); err != nil {
		t.Fatalf("Register: %v", err)
	}

	h, ok := r.Get("echo")
	if !ok || h == nil {
		t.Fatalf("Get(echo) = %v, %v", h, ok)
	}

	result, err := r.Execute(context.Background(), task.Task{Execution: "echo", Arguments: "hi"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Stdout != "hi" {
		t.Fatalf("Stdout = %q, want hi", result.Stdout)
	}
}

func TestRegistry_RegisterDuplicateRejected(t *testing.T) {
	r := New()
	_ = r.Register("echo", echoHandler)

	err := r.Register("echo", echoHandler)
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("err = %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegistry_ReplaceOverwrites(t *testing.T) {
	r := New()
	_ = r.Register("echo", echoHandler)

	called := false
	err := r.Replace("echo", func(ctx context.Context, t task.Task) (task.Result, error) {
		called = true
		return task.Result{}, nil
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	_, _ = r.Execute(context.Background(), task.Task{Execution: "echo"})
	if !called {
		t.Fatalf("Replace did not take effect")
	}
}

func TestRegistry_ExecuteUnknown(t *testing.T) {
	r := New()
	_, err := r.Execute(context.Background(), task.Task{Execution: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRegistry_List(t *testing.T) {
	r := New()
	_ = r.Register("a", echoHandler)
	_ = r.Register("b", echoHandler)

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List() = %v, want 2 entries", names)
	}
}
