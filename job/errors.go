package job

import "errors"

var (
	// ErrUnknownLink is returned when a Job names a link id the Workflow
	// does not have — a WorkflowInvalid should have caught this at load
	// time, so seeing it at runtime indicates caller misuse.
	ErrUnknownLink = errors.New("job: unknown link id")
	// ErrUnrecordedChoice is returned when a Choice/ChainChoice link's
	// recorded decision does not name one of the link's permitted choices.
	ErrUnrecordedChoice = errors.New("job: decision not in permitted choice set")
)
