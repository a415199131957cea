// Package jobchain implements the stateful per-package walk of the
// workflow graph — spec.md §4.5's JobChain — generalizing the outer loop
// of orchestrate/state/graph.go's execute/findNextNode (current node
// tracking, revisit counting, cycle detection) from an in-process loop
// into a step-by-step "produce one Job, wait for the caller to run it,
// advance" protocol, since here the scheduler (queue package) drives
// execution, not the chain itself.
package jobchain

import (
	"github.com/ingestkit/engine/job"
	"github.com/ingestkit/engine/workflow"
)

// MaxRevisits bounds how many times a single link id may recur within one
// JobChain's lifetime before it is treated as a runaway cycle and failed
// out, resolving spec.md §9's open question about a revisit cap.
const MaxRevisits = 64

// JobChain holds one package's position in the workflow graph. It does
// not execute Jobs itself (queue.PackageQueue drives job.Runner.Run and
// reports the Outcome back via Advance) — this keeps JobChain free of
// concurrency concerns entirely, matching spec.md §5's "only one Job
// active per package at a time" invariant.
type JobChain struct {
	workflow    *workflow.Workflow
	packageID   string
	currentLink string

	currentChain string
	chainStack   []string

	history  []string
	revisits map[string]int
}

// New starts a JobChain for packageID at the workflow's initiator chain.
func New(wf *workflow.Workflow, packageID string) *JobChain {
	initiator := wf.GetInitiator()
	return &JobChain{
		workflow:     wf,
		packageID:    packageID,
		currentLink:  initiator.StartLink,
		currentChain: initiator.ID,
		revisits:     make(map[string]int),
	}
}

// Resume reconstructs a JobChain at a previously persisted link/chain
// position, for the resumable-on-restart path spec.md §4.8 requires:
// "the actual resume path reconstructs a JobChain at the stored link id."
func Resume(wf *workflow.Workflow, packageID, linkID, chainID string, history []string) *JobChain {
	jc := &JobChain{
		workflow:     wf,
		packageID:    packageID,
		currentLink:  linkID,
		currentChain: chainID,
		history:      append([]string(nil), history...),
		revisits:     make(map[string]int),
	}
	for _, id := range jc.history {
		jc.revisits[id]++
	}
	return jc
}

// CurrentLink returns the link id the next call to Next will build a Job
// for.
func (jc *JobChain) CurrentLink() string {
	return jc.currentLink
}

// CurrentChain returns the chain id the walk is currently inside.
func (jc *JobChain) CurrentChain() string {
	return jc.currentChain
}

// History returns the ordered sequence of link ids visited so far, for
// debugging per spec.md §4.5.
func (jc *JobChain) History() []string {
	out := make([]string, len(jc.history))
	copy(out, jc.history)
	return out
}

// Next constructs a Job for the current link, called eagerly by the
// queue on package admission and again after each completed Job, per
// spec.md §4.5. It returns false if the chain has already terminated
// (Advance was last called with a terminal Outcome).
func (jc *JobChain) Next() (*job.Job, bool) {
	if jc.currentLink == "" {
		return nil, false
	}
	link, ok := jc.workflow.GetLink(jc.currentLink)
	if !ok {
		return nil, false
	}
	jc.history = append(jc.history, link.ID)
	jc.revisits[link.ID]++
	return job.New(jc.packageID, link), true
}

// Advance updates current_link (and, for a chain switch, current_chain)
// from a Job's Outcome. nil/empty next link means terminal, per spec.md
// §4.5's advance(next_link_id | nil).
func (jc *JobChain) Advance(outcome job.Outcome) error {
	if outcome.Terminal || outcome.AwaitingDecision {
		jc.currentLink = ""
		return nil
	}

	if outcome.NextChainID != "" {
		jc.chainStack = append(jc.chainStack, jc.currentChain)
		jc.currentChain = outcome.NextChainID
	}

	jc.currentLink = outcome.NextLinkID
	if jc.currentLink == "" {
		return nil
	}
	if jc.revisits[jc.currentLink] >= MaxRevisits {
		jc.currentLink = ""
		return &RevisitCapExceeded{LinkID: outcome.NextLinkID, Cap: MaxRevisits}
	}
	return nil
}

// Done reports whether the chain has reached a terminal link or is
// paused awaiting an external decision.
func (jc *JobChain) Done() bool {
	return jc.currentLink == ""
}
