// Package job executes one workflow Link against one Package, generalizing
// orchestrate/state/graph.go's single node-execution step (node.Execute,
// ExecutionError) across the six LinkManager kinds, with max-exit-code
// aggregation replacing a single state transform, per spec.md §4.4.
package job

import (
	"time"

	"github.com/google/uuid"
	"github.com/ingestkit/engine/workflow"
)

// Job is the ephemeral record of one link execution for one package.
type Job struct {
	ID        string
	PackageID string
	LinkID    string
	Group     string
	CreatedAt time.Time
	Status    workflow.JobStatus
	ExitCode  int
}

// New creates a Job for link against a package, status Unknown until Run
// completes it.
func New(packageID string, link *workflow.Link) *Job {
	return &Job{
		ID:        uuid.New().String(),
		PackageID: packageID,
		LinkID:    link.ID,
		Group:     link.Group,
		CreatedAt: time.Now(),
		Status:    workflow.StatusUnknown,
	}
}

// Outcome is what running a Job resolved to: where the JobChain should go
// next, per spec.md §4.5's advance(next_link_id | nil).
type Outcome struct {
	// NextLinkID is the link to run next. Empty together with Terminal
	// means the package has reached the end of the graph.
	NextLinkID string
	// NextChainID is set only when a chain-choice link switched chains;
	// NextLinkID then holds that chain's start link, which is where
	// JobChain.Advance goes next.
	NextChainID string
	// Terminal is true when the link was an output-decision link (or any
	// link with no outgoing transition) and the package is done.
	Terminal bool
	// AwaitingDecision is true when a Choice/ChainChoice link had no
	// recorded decision; the package is paused, no next Job is produced.
	AwaitingDecision bool
}
