package api

import "github.com/ingestkit/engine/bundle"

// Status is the wire status enum spec.md §6 names for the Read RPC:
// Unspecified=0, Complete=1, Processing=2, Failed=3. Rejected is carried
// even though the explicit numbering in spec.md stops at Failed=3,
// because bundle.FinalRejected is a real terminal outcome an
// output-decision link can set; it is assigned the next free ordinal
// rather than reusing one of the four spec.md enumerates.
type Status int32

const (
	StatusUnspecified Status = 0
	StatusComplete    Status = 1
	StatusProcessing  Status = 2
	StatusFailed      Status = 3
	StatusRejected    Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusProcessing:
		return "processing"
	case StatusFailed:
		return "failed"
	case StatusRejected:
		return "rejected"
	default:
		return "unspecified"
	}
}

// statusFromPackage derives the wire Status from a package's final state.
// A package still tracked as active by the engine (no FinalStatus set
// yet) is Processing.
func statusFromPackage(final bundle.FinalStatus, active bool) Status {
	if active {
		return StatusProcessing
	}
	switch final {
	case bundle.FinalComplete:
		return StatusComplete
	case bundle.FinalFailed:
		return StatusFailed
	case bundle.FinalRejected:
		return StatusRejected
	default:
		return StatusUnspecified
	}
}
