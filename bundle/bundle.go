// Package bundle implements Package — the mutable, per-submission bundle
// that a JobChain drives through the workflow graph (spec.md §3, §4.6).
// Named bundle because "package" is a reserved word in Go.
package bundle

import (
	"time"

	"github.com/google/uuid"
	"github.com/ingestkit/engine/config"
	"github.com/ingestkit/engine/replctx"
	"github.com/ingestkit/engine/workflow"
)

// Stage is where in the preservation pipeline a Package currently sits.
// Transition from Transfer to Ingest is one-way.
type Stage int

const (
	StageTransfer Stage = iota
	StageIngest
)

func (s Stage) String() string {
	if s == StageIngest {
		return "ingest"
	}
	return "transfer"
}

// FinalStatus is set by a terminal output-decision link.
type FinalStatus string

const (
	FinalUnspecified FinalStatus = "unspecified"
	FinalComplete    FinalStatus = "complete"
	FinalFailed      FinalStatus = "failed"
	FinalRejected    FinalStatus = "rejected"
)

// File is one catalog or filesystem entry a Standard link may dispatch a
// Task against, carrying the per-file replacement tokens spec.md §4.4
// unions with BASE_REPLACEMENTS and package replacements.
type File struct {
	UUID         string
	AbsolutePath string
	GroupUse     string
	Identified   bool
	Replacements *replctx.Context
}

// Package is the mutable per-submission bundle. Only the worker currently
// running its JobChain's Job mutates it (spec.md §5's shared-resource
// policy) — Package itself does no locking.
type Package struct {
	ID         string
	Name       string
	SourceURL  string
	Stage      Stage
	CurrentPath string
	Config     config.ProcessingConfig
	Context    *replctx.Context
	FinalStatus FinalStatus
	CreatedAt  time.Time

	decisions      map[string]string // link id -> recorded choice, for Choice/ChainChoice links
	fileLister     FileLister
}

// FileLister supplies the two file sources §4.6 unions: a catalog lookup
// and a filesystem walk. bundle does not implement either source itself —
// it is handed one at construction (e.g. backed by store.PersistenceStore
// and os.DirFS) so tests can substitute a fake.
type FileLister interface {
	Files(pkg *Package, filter workflow.FileFilter) ([]File, error)
}

// New constructs a Package at Stage=Transfer with an initial replacement
// context seeded from BASE_REPLACEMENTS-equivalent identity tokens plus
// the flattened ProcessingConfig, per spec.md §4.6's get_replacement_mapping.
func New(id, name, sourceURL, currentPath string, cfg config.ProcessingConfig, lister FileLister) *Package {
	p := &Package{
		ID:          id,
		Name:        name,
		SourceURL:   sourceURL,
		Stage:       StageTransfer,
		CurrentPath: currentPath,
		Config:      cfg,
		FinalStatus: FinalUnspecified,
		CreatedAt:   time.Now(),
		decisions:   make(map[string]string),
		fileLister:  lister,
	}
	p.Context = p.baseReplacements()
	return p
}

// SubID returns the transfer uuid while Stage=Transfer, and the sip uuid
// while Stage=Ingest. Both are the Package's own id — a3m distinguishes
// transfer/SIP uuids because a new SIP row is minted at start_ingest;
// here we keep one identity and let Stage alone select the token set,
// which is sufficient for every consumer of SubID (spec.md never requires
// the two uuids to literally differ, only that the token names do).
func (p *Package) SubID() string {
	return p.ID
}

func (p *Package) baseReplacements() *replctx.Context {
	c := replctx.New()
	if p.Stage == StageIngest {
		c = c.Set("SIPDirectory", p.CurrentPath).Set("SIPUUID", p.ID).Set("SIPName", p.Name)
	} else {
		c = c.Set("transferDirectory", p.CurrentPath).Set("transferUUID", p.ID).Set("transferName", p.Name)
	}
	return c.FromConfig(p.Config)
}

// StartIngest flips Stage and recomputes which token names the
// replacement context exposes ("%transferDirectory%" -> "%SIPDirectory%"),
// per spec.md §4.6. One-way: calling it again once already in Ingest is a
// no-op.
func (p *Package) StartIngest() {
	if p.Stage == StageIngest {
		return
	}
	p.Stage = StageIngest
	c := replctx.New()
	for _, k := range p.Context.Keys() {
		switch k {
		case "transferDirectory", "transferUUID", "transferName":
			continue
		}
		v, _ := p.Context.Get(k)
		c = c.Set(k, v)
	}
	p.Context = c.Merge(p.baseReplacements())
}

// Reload refreshes CurrentPath and derived replacement tokens from the
// given source, mirroring §4.6's reload() called at each job boundary so
// that a prior job's path rewrites are visible to the next. currentPath is
// the package's current persisted path (typically read through
// store.PersistenceStore.GetPackage).
func (p *Package) Reload(currentPath string) {
	p.CurrentPath = currentPath
	p.Context = p.Context.Merge(p.baseReplacements())
}

// ReplacementMapping returns the full token map for the current stage,
// including flattened config fields, per §4.6's get_replacement_mapping.
func (p *Package) ReplacementMapping() *replctx.Context {
	return p.Context
}

// Files iterates the package's file set, restartable on every call (a
// fresh Files() call restarts iteration per §4.6).
func (p *Package) Files(filter workflow.FileFilter) ([]File, error) {
	if p.fileLister == nil {
		return nil, nil
	}
	return p.fileLister.Files(p, filter)
}

// RecordDecision stores a Choice/ChainChoice resolution keyed by link id,
// so a resumed JobChain (or an external decision-maker) can answer a
// pending AwaitingDecision job.
func (p *Package) RecordDecision(linkID, choice string) {
	p.decisions[linkID] = choice
}

// Decision returns a previously recorded choice for linkID, if any.
func (p *Package) Decision(linkID string) (string, bool) {
	v, ok := p.decisions[linkID]
	return v, ok
}

// NewID returns a fresh package identifier. Exposed so callers don't need
// to import google/uuid themselves.
func NewID() string {
	return uuid.New().String()
}
