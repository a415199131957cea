package workflow

// ManagerKind identifies how a Link is executed. This is a closed tagged
// union rather than a string dispatched by name; job.Runner pattern-matches
// on it to pick the execution path.
type ManagerKind string

const (
	ManagerStandard     ManagerKind = "standard"
	ManagerChoice       ManagerKind = "choice"
	ManagerChainChoice  ManagerKind = "chain_choice"
	ManagerSetVariable  ManagerKind = "set_variable"
	ManagerGetVariable  ManagerKind = "get_variable"
	ManagerOutputDecision ManagerKind = "output_decision"
)

// Valid reports whether k is one of the known manager kinds.
func (k ManagerKind) Valid() bool {
	switch k {
	case ManagerStandard, ManagerChoice, ManagerChainChoice,
		ManagerSetVariable, ManagerGetVariable, ManagerOutputDecision:
		return true
	default:
		return false
	}
}

// FileFilter narrows the file set a Standard link iterates over.
// Zero value matches every file.
type FileFilter struct {
	GroupUse            string `yaml:"file_group_use,omitempty" json:"file_group_use,omitempty"`
	SubdirectoryPrefix  string `yaml:"subdirectory_prefix,omitempty" json:"subdirectory_prefix,omitempty"`
	RequireIdentified   bool   `yaml:"require_identified,omitempty" json:"require_identified,omitempty"`
	RequireUnidentified bool   `yaml:"require_unidentified,omitempty" json:"require_unidentified,omitempty"`
}

// StandardConfig is the per-variant payload for a ManagerStandard link.
type StandardConfig struct {
	Execution string     `yaml:"execution" json:"execution"`
	Arguments string     `yaml:"arguments" json:"arguments"`
	Filter    FileFilter `yaml:"filter,omitempty" json:"filter,omitempty"`
}

// VariableConfig is the per-variant payload for SetVariable/GetVariable links.
type VariableConfig struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
}

// OutputDecisionConfig is the per-variant payload for a terminal output-decision link.
type OutputDecisionConfig struct {
	FinalStatus string `yaml:"final_status" json:"final_status"`
}

// ExitCodeRule is what a Link does when a Job finishes with a given exit code.
type ExitCodeRule struct {
	NextLinkID string    `yaml:"next_link_id,omitempty" json:"next_link_id,omitempty"`
	JobStatus  JobStatus `yaml:"job_status" json:"job_status"`
}

// JobStatus mirrors the Job status enum from the data model (spec.md §3).
// Declared here, not in the job package, so the workflow graph can be
// validated and loaded without importing job.
type JobStatus string

const (
	StatusUnknown          JobStatus = "unknown"
	StatusAwaitingDecision JobStatus = "awaiting_decision"
	StatusExecuting        JobStatus = "executing"
	StatusCompletedOK      JobStatus = "completed_ok"
	StatusFailed           JobStatus = "failed"
)

// Link is one node of the workflow graph. Exactly one of the *Config fields
// is meaningful, selected by Manager.
type Link struct {
	ID      string      `yaml:"id" json:"id"`
	Manager ManagerKind `yaml:"manager" json:"manager"`
	Group   string      `yaml:"group,omitempty" json:"group,omitempty"`
	End     bool        `yaml:"end,omitempty" json:"end,omitempty"`

	// TriggersIngest marks the one workflow link whose successful
	// completion flips a Package from Stage Transfer to Stage Ingest
	// (spec.md §4.6's start_ingest()). a3m hardcodes this to a specific
	// link id; the graph carries it as data instead so the workflow
	// description is the single source of truth for where the
	// transition happens.
	TriggersIngest bool `yaml:"triggers_ingest,omitempty" json:"triggers_ingest,omitempty"`

	Standard       StandardConfig       `yaml:"standard,omitempty" json:"standard,omitempty"`
	Variable       VariableConfig       `yaml:"variable,omitempty" json:"variable,omitempty"`
	OutputDecision OutputDecisionConfig `yaml:"output_decision,omitempty" json:"output_decision,omitempty"`
	Choices        []string             `yaml:"choices,omitempty" json:"choices,omitempty"`

	ExitCodes map[int]ExitCodeRule `yaml:"exit_codes,omitempty" json:"exit_codes,omitempty"`

	FallbackLinkID   string    `yaml:"fallback_link_id,omitempty" json:"fallback_link_id,omitempty"`
	FallbackJobStatus JobStatus `yaml:"fallback_job_status,omitempty" json:"fallback_job_status,omitempty"`
}

// Resolve looks up the rule for exitCode, falling back to the link's
// fallback when no entry matches. The bool reports whether a specific
// exit_codes entry matched (false means the fallback was used).
func (l *Link) Resolve(exitCode int) (rule ExitCodeRule, matched bool) {
	if rule, ok := l.ExitCodes[exitCode]; ok {
		return rule, true
	}
	return ExitCodeRule{
		NextLinkID: l.FallbackLinkID,
		JobStatus:  l.FallbackJobStatus,
	}, false
}

// Chain is a named, ordered sequence of link ids with a designated start.
type Chain struct {
	ID        string   `yaml:"id" json:"id"`
	LinkIDs   []string `yaml:"link_ids" json:"link_ids"`
	StartLink string   `yaml:"start_link" json:"start_link"`
}
