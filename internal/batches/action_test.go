package batches

import (
	"context"
	"testing"

	"outreach_backend/internal/leads/domain"
)

func TestActionValidate(t *testing.T) {
	cases := []struct {
		name   string
		action Action
		ok     bool
	}{
		{"approve", Action{Kind: ActionApprove, BatchID: "1_general"}, true},
		{"unknown kind", Action{Kind: "launch", BatchID: "1_general"}, false},
		{"missing batch", Action{Kind: ActionConfirm}, false},
		{"refine without feedback", Action{Kind: ActionRefine, BatchID: "1_general"}, false},
		{"refine", Action{Kind: ActionRefine, BatchID: "1_general", Feedback: "shorter"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.action.Validate(); (err == nil) != tc.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestApplyDrivesTheProtocol(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.leads.Seed(domain.Lead{Email: "ada@example.com", Status: domain.StatusNew})

	p, _ := h.svc.Propose(ctx, generalStage1, 1)

	out, err := h.svc.Apply(ctx, Action{Kind: ActionApprove, BatchID: p.ID, Version: p.Version})
	if err != nil || out.Proposal.Status != StatusSampleCreated {
		t.Fatalf("approve: %+v (%v)", out.Proposal, err)
	}

	out, err = h.svc.Apply(ctx, Action{Kind: ActionConfirm, BatchID: p.ID, Version: p.Version})
	if err != nil {
		t.Fatalf("confirm returned error: %v", err)
	}
	if out.Blast == nil || out.Blast.Sent != 1 || out.Proposal.Status != StatusBlasted {
		t.Fatalf("unexpected confirm outcome %+v", out)
	}
}

func TestApplyRejectsInvalidAction(t *testing.T) {
	h := newHarness(t)
	if _, err := h.svc.Apply(context.Background(), Action{Kind: ActionCancel}); err == nil {
		t.Fatalf("expected validation error")
	}
}
