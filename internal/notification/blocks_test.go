package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"outreach_backend/internal/batches"
	"outreach_backend/internal/events"
	"outreach_backend/internal/oracle"
	"outreach_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProposal() batches.Proposal {
	return batches.Proposal{
		ID:        "2_home_automation",
		Version:   7,
		Stage:     2,
		Interest:  "Home Automation",
		LeadCount: 12,
		Content: oracle.Bundle{
			Subject:          "Quick follow-up",
			PersonalizedHook: "Saw {{company}} is hiring.",
			ValueProposition: "We automate intake.",
			CTAText:          "Open to a call?",
		},
	}
}

func TestProposalReviewLayout(t *testing.T) {
	msg := ProposalReview(testProposal(), "Sam")

	require.NotEmpty(t, msg.Blocks)
	assert.Equal(t, "*:mega: Batch Proposal for Stage 2 (Home Automation)* (12 leads)\nReview the generic template below:", msg.Blocks[0].Text.Text)
	assert.Contains(t, msg.Blocks[2].Text.Text, "*Subject:* Quick follow-up\n\nHi {name},")
	assert.Contains(t, msg.Blocks[2].Text.Text, "*Best,*\n*Sam*")

	actions := msg.Blocks[len(msg.Blocks)-1]
	assert.Equal(t, "actions", actions.Type)
	assert.Equal(t, "proposal_v7", actions.BlockID)
	require.Len(t, actions.Elements, 3)
	assert.Equal(t, ActionApproveTemplate, actions.Elements[0].ActionID)
	assert.Equal(t, "primary", actions.Elements[0].Style)
	for _, el := range actions.Elements {
		assert.Equal(t, "2_home_automation", el.Value)
	}
}

func TestProposalReviewDefaultsSender(t *testing.T) {
	msg := ProposalReview(testProposal(), "")
	assert.Contains(t, msg.Blocks[2].Text.Text, "*The Team*")
}

func TestSampleReviewButtons(t *testing.T) {
	p := testProposal()
	p.SampleRecipient = "ada@example.com"
	msg := SampleReview(p)

	assert.True(t, msg.ReplaceOriginal)
	actions := msg.Blocks[1]
	assert.Equal(t, "sample_v7", actions.BlockID)
	assert.Equal(t, ActionConfirmBlast, actions.Elements[0].ActionID)
	assert.Equal(t, ActionCancelBlast, actions.Elements[1].ActionID)
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, int64(7), ParseVersion("proposal_v7"))
	assert.Equal(t, int64(12), ParseVersion("sample_v12"))
	assert.Equal(t, int64(0), ParseVersion("abc"))
	assert.Equal(t, int64(0), ParseVersion("proposal_vx"))
}

func TestRefineModalCarriesMetadata(t *testing.T) {
	view := RefineModal(RefineMetadata{BatchID: "1_general", Version: 4, ResponseURL: "https://hooks.example/r"})

	var meta RefineMetadata
	require.NoError(t, json.Unmarshal([]byte(view.PrivateMetadata), &meta))
	assert.Equal(t, int64(4), meta.Version)
	assert.Equal(t, FeedbackBlockID, view.Blocks[0].BlockID)
	assert.Equal(t, FeedbackActionID, view.Blocks[0].Element.ActionID)
}

func TestOutcomeMessages(t *testing.T) {
	approve := batches.Outcome{Action: batches.Action{Kind: batches.ActionApprove, BatchID: "1_general"}, Proposal: testProposal()}
	assert.Equal(t, SampleReview(testProposal()), OutcomeMessage(approve, nil))

	stale := OutcomeMessage(approve, fmt.Errorf("load: %w", batches.ErrStaleProposal))
	assert.Contains(t, stale.Text, "re-proposed")
	assert.False(t, stale.ReplaceOriginal)

	confirm := batches.Outcome{
		Action: batches.Action{Kind: batches.ActionConfirm, BatchID: "1_general"},
		Blast:  &batches.BlastResult{BatchID: "1_general", Sent: 9, Failed: 1},
	}
	assert.Equal(t, ":rocket: Batch 1_general sent to 9 leads (1 failed)", OutcomeMessage(confirm, nil).Text)

	generic := OutcomeMessage(confirm, errors.New("boom"))
	assert.Contains(t, generic.Text, errorPrefix)
}

func TestResponderUsesResponseURL(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
	}))
	defer srv.Close()

	r := NewResponder(newTestSlack(srv, ""))
	out := batches.Outcome{Action: batches.Action{Kind: batches.ActionCancel, BatchID: "1_general", ResponseURL: srv.URL + "/respond"}}
	require.NoError(t, r.Report(context.Background(), out, nil))

	out.Action.ResponseURL = ""
	require.NoError(t, r.Report(context.Background(), out, nil))
	assert.Equal(t, []string{"/respond", "/hook"}, paths)
}

func TestModuleSkipsAutomatedSends(t *testing.T) {
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg Message
		_ = json.NewDecoder(r.Body).Decode(&msg)
		texts = append(texts, msg.Text)
	}))
	defer srv.Close()

	m := New(newTestSlack(srv, ""), logger.Discard())
	ctx := context.Background()
	require.NoError(t, m.Handle(ctx, events.EmailSent{Email: "a@example.com", Stage: 2}))
	require.NoError(t, m.Handle(ctx, events.EmailSent{Email: "b@example.com", Stage: 3, Manual: true}))
	require.NoError(t, m.Handle(ctx, events.LeadImported{Email: "c@example.com", Name: "Cy", Source: "HubSpot Import"}))

	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "b@example.com")
	assert.Equal(t, infoPrefix+":new: New lead imported: Cy <c@example.com> (HubSpot Import)", texts[1])
}
