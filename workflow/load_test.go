package workflow

import (
	"strings"
	"testing"
)

const sampleYAML = `
initiator_chain: main
chains:
  - id: main
    start_link: ident
    link_ids: [ident, normalize]
links:
  - id: ident
    manager: standard
    standard:
      execution: identify-format-v1
      arguments: '"%SIPDirectory%"'
    exit_codes:
      0:
        next_link_id: normalize
        job_status: completed_ok
  - id: normalize
    manager: standard
    end: true
    standard:
      execution: normalize-v1
      arguments: '"%SIPDirectory%"'
`

func TestLoad_ValidDocument(t *testing.T) {
	w, err := Load(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := w.GetLink("ident"); !ok {
		t.Fatalf("expected link %q", "ident")
	}
	if w.GetInitiator().StartLink != "ident" {
		t.Fatalf("start link = %s, want ident", w.GetInitiator().StartLink)
	}
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	const bad = `
initiator_chain: main
chains:
  - id: main
    start_link: a
    link_ids: [a]
links:
  - id: a
    manager: standard
    end: true
    bogus_field: true
`
	if _, err := Load(strings.NewReader(bad)); err == nil {
		t.Fatalf("expected decode error for unknown field")
	}
}
