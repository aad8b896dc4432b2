// Package batches owns the template-approval lifecycle of a cohort: the
// proposal, the review sample and the final blast.
package batches

import (
	"errors"
	"fmt"
	"time"

	"outreach_backend/internal/cadence"
	"outreach_backend/internal/oracle"
)

// Status is the lifecycle tag of a proposal.
type Status string

const (
	StatusPendingTemplate Status = "pending_template"
	StatusSampleCreated   Status = "sample_created"
	StatusBlasting        Status = "blasting"
	StatusBlasted         Status = "blasted"
	StatusCancelled       Status = "cancelled"
)

// Closed reports whether the proposal has resolved.
func (s Status) Closed() bool {
	return s == StatusBlasted || s == StatusCancelled
}

var (
	ErrProposalNotFound  = errors.New("batch proposal not found")
	ErrCohortEmpty       = errors.New("cohort now empty")
	ErrInvalidTransition = errors.New("invalid batch transition")
	ErrStaleProposal     = errors.New("batch proposal was replaced")
)

// Proposal is the single live content-approval unit for one cohort key.
type Proposal struct {
	ID        string        `json:"id"`
	Version   int64         `json:"version"`
	Stage     int           `json:"stage"`
	Interest  string        `json:"interest"`
	Content   oracle.Bundle `json:"content"`
	LeadCount int           `json:"lead_count"`
	Status    Status        `json:"status"`
	Feedback  string        `json:"feedback,omitempty"`

	// SampleDraftID is the newest review draft. SampleDraftIDs keeps every
	// draft created for this proposal so resolution can remove all of them.
	SampleDraftID   string   `json:"sample_draft_id,omitempty"`
	SampleDraftIDs  []string `json:"sample_draft_ids,omitempty"`
	SampleRecipient string   `json:"sample_recipient,omitempty"`

	Sent   int `json:"sent,omitempty"`
	Failed int `json:"failed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the cohort the proposal targets.
func (p Proposal) Key() cadence.CohortKey {
	return cadence.CohortKey{Stage: p.Stage, Interest: p.Interest}
}

// transition validates moving p to next.
func (p Proposal) transition(next Status) error {
	allowed := false
	switch next {
	case StatusPendingTemplate:
		allowed = p.Status == StatusPendingTemplate
	case StatusSampleCreated:
		allowed = p.Status == StatusPendingTemplate || p.Status == StatusSampleCreated
	case StatusBlasting:
		allowed = p.Status == StatusSampleCreated
	case StatusBlasted:
		allowed = p.Status == StatusBlasting
	case StatusCancelled:
		allowed = p.Status == StatusPendingTemplate || p.Status == StatusSampleCreated
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}
	return nil
}

// checkVersion rejects actions rendered for an older proposal. Zero means
// "whatever is live".
func (p Proposal) checkVersion(version int64) error {
	if version != 0 && version != p.Version {
		return fmt.Errorf("%w: action for v%d, live is v%d", ErrStaleProposal, version, p.Version)
	}
	return nil
}

// BlastResult summarises one blast.
type BlastResult struct {
	BatchID string
	Sent    int
	Failed  int
}
