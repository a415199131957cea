package jobchain

import (
	"testing"

	"github.com/ingestkit/engine/job"
	"github.com/ingestkit/engine/workflow"
)

func buildWorkflow(t *testing.T) *workflow.Workflow {
	t.Helper()
	a := &workflow.Link{ID: "a", Manager: workflow.ManagerStandard,
		ExitCodes: map[int]workflow.ExitCodeRule{0: {NextLinkID: "b", JobStatus: workflow.StatusCompletedOK}}}
	b := &workflow.Link{ID: "b", Manager: workflow.ManagerStandard, End: true}
	chain := &workflow.Chain{ID: "main", LinkIDs: []string{"a", "b"}, StartLink: "a"}
	w, err := workflow.New([]*workflow.Link{a, b}, []*workflow.Chain{chain}, "main")
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}
	return w
}

func TestJobChain_NextThenAdvanceWalksLinearGraph(t *testing.T) {
	w := buildWorkflow(t)
	jc := New(w, "pkg-1")

	j, ok := jc.Next()
	if !ok || j.LinkID != "a" {
		t.Fatalf("Next() = %v, %v, want link a", j, ok)
	}
	if err := jc.Advance(job.Outcome{NextLinkID: "b"}); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if jc.CurrentLink() != "b" {
		t.Fatalf("CurrentLink() = %s, want b", jc.CurrentLink())
	}

	j2, ok := jc.Next()
	if !ok || j2.LinkID != "b" {
		t.Fatalf("Next() = %v, %v, want link b", j2, ok)
	}
	if err := jc.Advance(job.Outcome{Terminal: true}); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !jc.Done() {
		t.Fatalf("expected Done() after terminal Advance")
	}
	if _, ok := jc.Next(); ok {
		t.Fatalf("Next() after terminal should report false")
	}

	if got, want := jc.History(), []string{"a", "b"}; len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("History() = %v, want %v", got, want)
	}
}

func TestJobChain_AwaitingDecisionPausesChain(t *testing.T) {
	w := buildWorkflow(t)
	jc := New(w, "pkg-1")
	_, _ = jc.Next()

	if err := jc.Advance(job.Outcome{AwaitingDecision: true}); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !jc.Done() {
		t.Fatalf("expected Done() while awaiting decision")
	}
}

func TestJobChain_ChainChoiceSwitchesChain(t *testing.T) {
	a := &workflow.Link{ID: "a", Manager: workflow.ManagerChainChoice, Choices: []string{"alt"}}
	b := &workflow.Link{ID: "b", Manager: workflow.ManagerStandard, End: true}
	mainChain := &workflow.Chain{ID: "main", LinkIDs: []string{"a"}, StartLink: "a"}
	altChain := &workflow.Chain{ID: "alt", LinkIDs: []string{"b"}, StartLink: "b"}
	w, err := workflow.New([]*workflow.Link{a, b}, []*workflow.Chain{mainChain, altChain}, "main")
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}

	jc := New(w, "pkg-1")
	_, _ = jc.Next()
	if err := jc.Advance(job.Outcome{NextChainID: "alt", NextLinkID: "b"}); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if jc.CurrentChain() != "alt" || jc.CurrentLink() != "b" {
		t.Fatalf("CurrentChain/Link = %s/%s, want alt/b", jc.CurrentChain(), jc.CurrentLink())
	}
}

func TestJobChain_RevisitCapExceeded(t *testing.T) {
	a := &workflow.Link{ID: "a", Manager: workflow.ManagerStandard,
		ExitCodes: map[int]workflow.ExitCodeRule{0: {NextLinkID: "a", JobStatus: workflow.StatusCompletedOK}}}
	chain := &workflow.Chain{ID: "main", LinkIDs: []string{"a"}, StartLink: "a"}
	w, err := workflow.New([]*workflow.Link{a}, []*workflow.Chain{chain}, "main")
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}

	jc := New(w, "pkg-1")
	var lastErr error
	for i := 0; i < MaxRevisits+2; i++ {
		j, ok := jc.Next()
		if !ok {
			break
		}
		lastErr = jc.Advance(job.Outcome{NextLinkID: j.LinkID})
		if lastErr != nil {
			break
		}
	}
	if lastErr == nil {
		t.Fatalf("expected RevisitCapExceeded after %d revisits", MaxRevisits)
	}
	if _, ok := lastErr.(*RevisitCapExceeded); !ok {
		t.Fatalf("lastErr = %T, want *RevisitCapExceeded", lastErr)
	}
	if !jc.Done() {
		t.Fatalf("expected Done() after revisit cap exceeded")
	}
}

func TestResume_ReconstructsPosition(t *testing.T) {
	w := buildWorkflow(t)
	jc := Resume(w, "pkg-1", "b", "main", []string{"a"})

	if jc.CurrentLink() != "b" || jc.CurrentChain() != "main" {
		t.Fatalf("Resume did not restore position: link=%s chain=%s", jc.CurrentLink(), jc.CurrentChain())
	}
	j, ok := jc.Next()
	if !ok || j.LinkID != "b" {
		t.Fatalf("Next() after Resume = %v, %v, want link b", j, ok)
	}
}
