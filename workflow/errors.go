package workflow

import "fmt"

// WorkflowInvalid is returned by Load/New when the workflow description
// fails a structural check. Reason is a short, stable machine-checkable
// code so callers can distinguish failure kinds without string matching.
type WorkflowInvalid struct {
	Reason string
	Detail string
}

func (e *WorkflowInvalid) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("workflow invalid: %s", e.Reason)
	}
	return fmt.Sprintf("workflow invalid: %s: %s", e.Reason, e.Detail)
}

const (
	ReasonDuplicateLinkID     = "duplicate_link_id"
	ReasonDuplicateChainID    = "duplicate_chain_id"
	ReasonUnknownManager      = "unknown_manager"
	ReasonDanglingNextLink    = "dangling_next_link"
	ReasonDanglingFallback    = "dangling_fallback_link"
	ReasonDanglingChainLink   = "dangling_chain_link"
	ReasonDanglingStartLink   = "dangling_start_link"
	ReasonEmptyChoiceSet      = "empty_choice_set"
	ReasonNoInitiator         = "no_initiator_chain"
	ReasonEndTerminalMismatch = "end_terminal_mismatch"
	ReasonEmptyChain          = "empty_chain"
)
