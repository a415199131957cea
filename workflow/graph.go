package workflow

import "strconv"

// Workflow is the immutable, validated graph of links and chains loaded
// from a workflow description. It is read-only after Load: JobChain and
// Job consult it by id, never hold direct references into it (spec.md's
// Design Notes: break cyclic references via id lookup, not owning handles).
type Workflow struct {
	links     map[string]*Link
	chains    map[string]*Chain
	initiator string
}

// GetLink returns the link with the given id, or false if it does not exist.
func (w *Workflow) GetLink(id string) (*Link, bool) {
	l, ok := w.links[id]
	return l, ok
}

// GetChain returns the chain with the given id, or false if it does not exist.
func (w *Workflow) GetChain(id string) (*Chain, bool) {
	c, ok := w.chains[id]
	return c, ok
}

// GetInitiator returns the chain a new Package enters on, which Load
// guarantees exists.
func (w *Workflow) GetInitiator() *Chain {
	return w.chains[w.initiator]
}

// IsTerminal reports whether reaching a link ends the job chain, computed
// from the link's own transition data independent of its declared End
// flag; validation in New requires the two to agree (see ReasonEndTerminalMismatch),
// resolving spec.md's open question about end=true vs terminal-link
// equivalence rather than assuming one implies the other.
//
// What "transition data" means depends on the manager kind: Standard,
// SetVariable and GetVariable links route through exit_codes/fallback (the
// same table GetVariable and SetVariable consult at exit code 0), while
// Choice and ChainChoice always route through a recorded decision and so
// are never terminal, and OutputDecision links are always terminal.
func (w *Workflow) IsTerminal(l *Link) bool {
	switch l.Manager {
	case ManagerOutputDecision:
		return true
	case ManagerChoice, ManagerChainChoice:
		return false
	default:
		if l.FallbackLinkID != "" {
			return false
		}
		for _, rule := range l.ExitCodes {
			if rule.NextLinkID != "" {
				return false
			}
		}
		return true
	}
}

// New constructs a Workflow from already-parsed links and chains and
// validates it. Callers should use Load for the YAML-backed path; New is
// exposed for building workflows programmatically (e.g. in tests).
func New(links []*Link, chains []*Chain, initiatorChainID string) (*Workflow, error) {
	w := &Workflow{
		links:     make(map[string]*Link, len(links)),
		chains:    make(map[string]*Chain, len(chains)),
		initiator: initiatorChainID,
	}
	for _, l := range links {
		if _, exists := w.links[l.ID]; exists {
			return nil, &WorkflowInvalid{Reason: ReasonDuplicateLinkID, Detail: l.ID}
		}
		w.links[l.ID] = l
	}
	for _, c := range chains {
		if _, exists := w.chains[c.ID]; exists {
			return nil, &WorkflowInvalid{Reason: ReasonDuplicateChainID, Detail: c.ID}
		}
		w.chains[c.ID] = c
	}
	if err := w.validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Workflow) validate() error {
	if _, ok := w.chains[w.initiator]; !ok {
		return &WorkflowInvalid{Reason: ReasonNoInitiator, Detail: w.initiator}
	}

	for _, l := range w.links {
		if !l.Manager.Valid() {
			return &WorkflowInvalid{Reason: ReasonUnknownManager, Detail: string(l.Manager)}
		}
		if l.Manager == ManagerChoice && len(l.Choices) == 0 {
			return &WorkflowInvalid{Reason: ReasonEmptyChoiceSet, Detail: l.ID}
		}
		if l.FallbackLinkID != "" {
			if _, ok := w.links[l.FallbackLinkID]; !ok {
				return &WorkflowInvalid{Reason: ReasonDanglingFallback, Detail: l.ID + " -> " + l.FallbackLinkID}
			}
		}
		for code, rule := range l.ExitCodes {
			if rule.NextLinkID == "" {
				continue
			}
			if _, ok := w.links[rule.NextLinkID]; !ok {
				return &WorkflowInvalid{Reason: ReasonDanglingNextLink, Detail: l.ID + " exit " + strconv.Itoa(code) + " -> " + rule.NextLinkID}
			}
		}
		if l.End != w.IsTerminal(l) {
			return &WorkflowInvalid{Reason: ReasonEndTerminalMismatch, Detail: l.ID}
		}
	}

	for _, c := range w.chains {
		if len(c.LinkIDs) == 0 {
			return &WorkflowInvalid{Reason: ReasonEmptyChain, Detail: c.ID}
		}
		if c.StartLink == "" {
			return &WorkflowInvalid{Reason: ReasonDanglingStartLink, Detail: c.ID}
		}
		found := false
		for _, id := range c.LinkIDs {
			if _, ok := w.links[id]; !ok {
				return &WorkflowInvalid{Reason: ReasonDanglingChainLink, Detail: c.ID + " -> " + id}
			}
			if id == c.StartLink {
				found = true
			}
		}
		if !found {
			return &WorkflowInvalid{Reason: ReasonDanglingStartLink, Detail: c.ID + " -> " + c.StartLink}
		}
	}
	return nil
}
