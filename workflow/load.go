package workflow

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a workflow description. Field names
// match the declarative format spec.md §4.1 describes; decoding is strict
// (KnownFields) so a typo in the file surfaces as a load error rather than
// a silently-ignored field.
type document struct {
	InitiatorChain string   `yaml:"initiator_chain"`
	Links          []*Link  `yaml:"links"`
	Chains         []*Chain `yaml:"chains"`
}

// Load reads a workflow description from r and returns a validated Workflow.
func Load(r io.Reader) (*Workflow, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("workflow: decode: %w", err)
	}
	return New(doc.Links, doc.Chains, doc.InitiatorChain)
}

// LoadFile opens path and delegates to Load.
func LoadFile(path string) (*Workflow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
