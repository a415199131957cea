package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ingestkit/engine/bundle"
	"github.com/ingestkit/engine/observability"
	"github.com/ingestkit/engine/task"
	"github.com/ingestkit/engine/workflow"
)

const (
	EventJobStart    observability.EventType = "job.start"
	EventJobComplete observability.EventType = "job.complete"
)

// Backend is the subset of task.Backend a Runner needs, so tests can
// substitute a fake without constructing a real worker pool.
type Backend interface {
	Submit(ctx context.Context, tasks []task.Task) ([]task.Result, error)
}

// Reloader refreshes a Package's current path and unit variables from
// persistent storage, mirroring spec.md §4.2/§4.6's reload() called at
// each job boundary so that a prior job's path rewrite, or a SetVariable
// write persisted before a resume, is visible to the next job. Defined
// locally (rather than importing store directly, which would cycle back
// through job.Job) the way Backend decouples task dispatch.
type Reloader interface {
	Reload(ctx context.Context, pkg *bundle.Package) error
}

// Runner executes Jobs against a fixed Workflow and task Backend. It holds
// no per-package state; a Runner is safe to share across concurrently
// executing packages, since spec.md §5 guarantees only one Job per
// package runs at a time and Package itself is unsynchronized.
type Runner struct {
	Workflow       *workflow.Workflow
	Backend        Backend
	DefaultTimeout time.Duration
	Observer       observability.Observer
	Reloader       Reloader // optional; nil skips the reload-at-job-boundary step
}

// Run executes j's link against pkg. It never returns an error for
// domain-level failures (transport errors, bad exit codes, panics in task
// dispatch) — those are folded into j.Status/j.ExitCode and the returned
// Outcome per spec.md §4.4's failure semantics. An error return means a
// programming/configuration defect (unknown link id, or a recorded
// decision outside a choice link's declared Choices) that the caller
// should treat as fatal to the package, not retryable.
func (r *Runner) Run(ctx context.Context, pkg *bundle.Package, j *Job) (outcome Outcome, err error) {
	link, ok := r.Workflow.GetLink(j.LinkID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownLink, j.LinkID)
	}

	observer := r.Observer
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	defer func() {
		if rec := recover(); rec != nil {
			j.Status = workflow.StatusFailed
			err = nil
			outcome = r.failureOutcome(link)
			observer.OnEvent(ctx, observability.Event{
				Type:      EventJobComplete,
				Level:     observability.LevelError,
				Timestamp: time.Now(),
				Source:    "job.Runner.Run",
				Data:      map[string]any{"job_id": j.ID, "link_id": j.LinkID, "panic": fmt.Sprint(rec)},
			})
		}
	}()

	observer.OnEvent(ctx, observability.Event{
		Type:      EventJobStart,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "job.Runner.Run",
		Data:      map[string]any{"job_id": j.ID, "link_id": j.LinkID, "manager": string(link.Manager)},
	})

	if r.Reloader != nil {
		if reloadErr := r.Reloader.Reload(ctx, pkg); reloadErr != nil {
			observer.OnEvent(ctx, observability.Event{
				Type:      "job.reload_failed",
				Level:     observability.LevelWarning,
				Timestamp: time.Now(),
				Source:    "job.Runner.Run",
				Data:      map[string]any{"job_id": j.ID, "link_id": j.LinkID, "error": reloadErr.Error()},
			})
		}
	}

	j.Status = workflow.StatusExecuting

	switch link.Manager {
	case workflow.ManagerStandard:
		outcome, err = r.runStandard(ctx, pkg, j, link)
	case workflow.ManagerChoice:
		outcome, err = r.runChoice(pkg, j, link)
	case workflow.ManagerChainChoice:
		outcome, err = r.runChainChoice(pkg, j, link)
	case workflow.ManagerSetVariable:
		outcome = r.runSetVariable(pkg, j, link)
	case workflow.ManagerGetVariable:
		outcome = r.runGetVariable(pkg, j, link)
	case workflow.ManagerOutputDecision:
		outcome = r.runOutputDecision(pkg, j, link)
	}

	if outcome.Terminal && pkg.FinalStatus == bundle.FinalUnspecified {
		if j.Status == workflow.StatusFailed {
			pkg.FinalStatus = bundle.FinalFailed
		} else {
			pkg.FinalStatus = bundle.FinalComplete
		}
	}

	if link.TriggersIngest && j.Status == workflow.StatusCompletedOK {
		pkg.StartIngest()
	}

	observer.OnEvent(ctx, observability.Event{
		Type:      EventJobComplete,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "job.Runner.Run",
		Data: map[string]any{
			"job_id":    j.ID,
			"link_id":   j.LinkID,
			"status":    string(j.Status),
			"exit_code": j.ExitCode,
			"terminal":  outcome.Terminal,
		},
	})

	return outcome, err
}

func (r *Runner) failureOutcome(link *workflow.Link) Outcome {
	if link.FallbackLinkID == "" {
		return Outcome{Terminal: true}
	}
	return Outcome{NextLinkID: link.FallbackLinkID}
}

func (r *Runner) runStandard(ctx context.Context, pkg *bundle.Package, j *Job, link *workflow.Link) (Outcome, error) {
	files, err := pkg.Files(link.Standard.Filter)
	if err != nil {
		j.Status = workflow.StatusFailed
		return r.failureOutcome(link), nil
	}

	tasks := make([]task.Task, 0, len(files))
	for _, f := range files {
		merged := pkg.ReplacementMapping().Merge(f.Replacements)
		tasks = append(tasks, task.Task{
			ID:        uuid.New().String(),
			JobID:     j.ID,
			FileUUID:  f.UUID,
			Filename:  f.AbsolutePath,
			Execution: link.Standard.Execution,
			Arguments: merged.Replace(link.Standard.Arguments),
			Timeout:   r.DefaultTimeout,
		})
	}

	results, submitErr := r.Backend.Submit(ctx, tasks)

	var transportErr *task.BatchTransportError
	if submitErr != nil && errors.As(submitErr, &transportErr) {
		j.Status = workflow.StatusFailed
		return r.failureOutcome(link), nil
	}

	exitCode := 0
	for _, res := range results {
		if res.ExitCode > exitCode {
			exitCode = res.ExitCode
		}
	}
	j.ExitCode = exitCode

	rule, _ := link.Resolve(exitCode)
	j.Status = rule.JobStatus
	if rule.NextLinkID == "" {
		return Outcome{Terminal: true}, nil
	}
	return Outcome{NextLinkID: rule.NextLinkID}, nil
}

func (r *Runner) runChoice(pkg *bundle.Package, j *Job, link *workflow.Link) (Outcome, error) {
	decision, ok := pkg.Decision(link.ID)
	if !ok {
		j.Status = workflow.StatusAwaitingDecision
		return Outcome{AwaitingDecision: true}, nil
	}
	if !choicePermitted(link.Choices, decision) {
		j.Status = workflow.StatusFailed
		return Outcome{}, fmt.Errorf("%w: link %s recorded %q", ErrUnrecordedChoice, link.ID, decision)
	}
	j.Status = workflow.StatusCompletedOK
	return Outcome{NextLinkID: decision}, nil
}

func (r *Runner) runChainChoice(pkg *bundle.Package, j *Job, link *workflow.Link) (Outcome, error) {
	decision, ok := pkg.Decision(link.ID)
	if !ok {
		j.Status = workflow.StatusAwaitingDecision
		return Outcome{AwaitingDecision: true}, nil
	}
	if !choicePermitted(link.Choices, decision) {
		j.Status = workflow.StatusFailed
		return Outcome{}, fmt.Errorf("%w: link %s recorded %q", ErrUnrecordedChoice, link.ID, decision)
	}
	chain, ok := r.Workflow.GetChain(decision)
	if !ok {
		j.Status = workflow.StatusFailed
		return r.failureOutcome(link), nil
	}
	j.Status = workflow.StatusCompletedOK
	return Outcome{NextChainID: chain.ID, NextLinkID: chain.StartLink}, nil
}

// choicePermitted reports whether decision is one of the link's declared
// Choices. An empty Choices set means the link doesn't restrict the
// decision space (ManagerChoice links always declare a non-empty set per
// workflow.validate's ReasonEmptyChoiceSet; ChainChoice links are free to
// name any chain id and so may leave Choices empty).
func choicePermitted(choices []string, decision string) bool {
	if len(choices) == 0 {
		return true
	}
	for _, c := range choices {
		if c == decision {
			return true
		}
	}
	return false
}

func (r *Runner) runSetVariable(pkg *bundle.Package, j *Job, link *workflow.Link) Outcome {
	pkg.Context = pkg.Context.Set(link.Variable.Name, pkg.ReplacementMapping().Replace(link.Variable.Value))
	j.Status = workflow.StatusCompletedOK
	j.ExitCode = 0
	return r.defaultExit(link)
}

func (r *Runner) runGetVariable(pkg *bundle.Package, j *Job, link *workflow.Link) Outcome {
	value, _ := pkg.Context.Get(link.Variable.Name)
	pkg.Context = pkg.Context.Set(link.Variable.Name, value)
	j.Status = workflow.StatusCompletedOK
	j.ExitCode = 0
	return r.defaultExit(link)
}

func (r *Runner) defaultExit(link *workflow.Link) Outcome {
	rule, _ := link.Resolve(0)
	if rule.NextLinkID == "" {
		return Outcome{Terminal: true}
	}
	return Outcome{NextLinkID: rule.NextLinkID}
}

func (r *Runner) runOutputDecision(pkg *bundle.Package, j *Job, link *workflow.Link) Outcome {
	switch link.OutputDecision.FinalStatus {
	case "complete":
		pkg.FinalStatus = bundle.FinalComplete
	case "rejected":
		pkg.FinalStatus = bundle.FinalRejected
	default:
		pkg.FinalStatus = bundle.FinalFailed
	}
	j.Status = workflow.StatusCompletedOK
	return Outcome{Terminal: true}
}
