package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"github.com/ingestkit/engine/task"
)

// ShellHandler runs a Task's fully-interpolated Arguments as a shell
// command line, the concrete "external task executor" spec.md §1 scopes
// out of the engine's own responsibilities — grounded on
// 88lin-divinesense's cc_runner.go exec.CommandContext usage, adapted from
// invoking a fixed CLI binary to invoking an arbitrary preservation tool
// (clamav, siegfried, bagit, 7z, …) named by the workflow description.
func ShellHandler(shell string) Handler {
	if shell == "" {
		shell = "/bin/sh"
	}
	return func(ctx context.Context, t task.Task) (task.Result, error) {
		cmd := exec.CommandContext(ctx, shell, "-c", t.Arguments)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		runErr := cmd.Run()

		result := task.Result{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}

		var exitErr *exec.ExitError
		switch {
		case runErr == nil:
			result.ExitCode = 0
		case errors.As(runErr, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		default:
			// Command never ran (binary not found, context cancelled before
			// start): a transport-level failure, not an exit code. The
			// Backend assigns this to result.Err itself from the returned
			// error, so it is not set here too.
			return result, runErr
		}
		return result, nil
	}
}
