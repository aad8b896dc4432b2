// Package transport holds the HTTP request and response shapes of the leads API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// Ingest outcomes.
const (
	IngestCreated   = "created"
	IngestDuplicate = "duplicate"
)

// IngestRequest is a lead captured by a signup form or an upstream tool.
type IngestRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Name     string `json:"name,omitempty" validate:"omitempty,max=200"`
	Company  string `json:"company,omitempty" validate:"omitempty,max=200"`
	Interest string `json:"interest,omitempty" validate:"omitempty,max=100"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Message  string `json:"message,omitempty" validate:"omitempty,max=5000"`
	Source   string `json:"source,omitempty" validate:"omitempty,max=100"`
}

type IngestResponse struct {
	Status string     `json:"status"`
	LeadID *uuid.UUID `json:"leadId,omitempty"`
	CRMID  string     `json:"crmId,omitempty"`
}

// ResetRequest moves a lead to an arbitrary stage. Stage is a pointer so
// that an explicit 0 is distinguishable from a missing field.
type ResetRequest struct {
	Stage *int `json:"stage" validate:"required,min=0,max=4"`
}

type LeadResponse struct {
	ID                   uuid.UUID  `json:"id"`
	Email                string     `json:"email"`
	Name                 string     `json:"name"`
	Source               string     `json:"source"`
	Status               string     `json:"status"`
	Phone                string     `json:"phone,omitempty"`
	CRMID                *string    `json:"crmId,omitempty"`
	Company              string     `json:"company,omitempty"`
	Interest             string     `json:"interest,omitempty"`
	SequenceStage        int        `json:"sequenceStage"`
	LastContactedAt      *time.Time `json:"lastContactedAt,omitempty"`
	DraftCreatedForStage *int       `json:"draftCreatedForStage,omitempty"`
	HasReplied           bool       `json:"hasReplied"`
	MeetingBooked        bool       `json:"meetingBooked"`
	DoNotContact         bool       `json:"doNotContact"`
	Intent               *Intent    `json:"intent,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}

type DraftResponse struct {
	DraftID string `json:"draftId"`
	Stage   int    `json:"stage"`
	Subject string `json:"subject"`
}

type Intent struct {
	Score           int        `json:"score"`
	Intent          string     `json:"intent"`
	SuggestedAction string     `json:"suggestedAction"`
	Reasoning       string     `json:"reasoning"`
	AnalyzedAt      *time.Time `json:"analyzedAt,omitempty"`
}
