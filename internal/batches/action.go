package batches

import (
	"context"
	"fmt"
	"strings"
)

// ActionKind is an operator decision on a proposal.
type ActionKind string

const (
	ActionApprove    ActionKind = "approve"
	ActionRegenerate ActionKind = "regenerate"
	ActionRefine     ActionKind = "refine"
	ActionConfirm    ActionKind = "confirm"
	ActionCancel     ActionKind = "cancel"
)

// Valid reports whether k is a known action.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionApprove, ActionRegenerate, ActionRefine, ActionConfirm, ActionCancel:
		return true
	}
	return false
}

// Action is one operator decision, addressed to a proposal version.
// ResponseURL is where the outcome should be reported, if anywhere.
type Action struct {
	Kind        ActionKind `json:"kind"`
	BatchID     string     `json:"batch_id"`
	Version     int64      `json:"version"`
	Feedback    string     `json:"feedback,omitempty"`
	ResponseURL string     `json:"response_url,omitempty"`
	User        string     `json:"user,omitempty"`
}

// Validate checks the fields every action needs.
func (a Action) Validate() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("unknown action %q", a.Kind)
	}
	if strings.TrimSpace(a.BatchID) == "" {
		return fmt.Errorf("action %s: missing batch id", a.Kind)
	}
	if a.Kind == ActionRefine && strings.TrimSpace(a.Feedback) == "" {
		return fmt.Errorf("action refine: missing feedback")
	}
	return nil
}

// Outcome is the result of applying an action.
type Outcome struct {
	Action   Action
	Proposal Proposal
	Blast    *BlastResult
}

// Apply executes a against the service.
func (s *Service) Apply(ctx context.Context, a Action) (Outcome, error) {
	if err := a.Validate(); err != nil {
		return Outcome{Action: a}, err
	}
	out := Outcome{Action: a}
	var err error
	switch a.Kind {
	case ActionApprove:
		out.Proposal, err = s.MaterializeSample(ctx, a.BatchID, a.Version)
	case ActionRegenerate:
		out.Proposal, err = s.Regenerate(ctx, a.BatchID, a.Version)
	case ActionRefine:
		out.Proposal, err = s.Refine(ctx, a.BatchID, a.Version, a.Feedback)
	case ActionConfirm:
		var result BlastResult
		result, err = s.ExecuteBlast(ctx, a.BatchID, a.Version)
		if err == nil {
			out.Blast = &result
			out.Proposal, err = s.store.Get(ctx, a.BatchID)
		}
	case ActionCancel:
		out.Proposal, err = s.Cancel(ctx, a.BatchID, a.Version)
	}
	return out, err
}
