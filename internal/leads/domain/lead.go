package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultInterest is the cohort bucket for leads without an interest.
const DefaultInterest = "general"

// Lead is one contact tracked through the cadence. Email is the natural key.
type Lead struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Source    string
	Status    Status
	Phone     string
	Message   string
	CRMID     *string
	Metadata  Metadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeEmail lowercases and trims an address for natural-key comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// InterestBucket returns the cohort interest, falling back to DefaultInterest.
func (l Lead) InterestBucket() string {
	if interest := strings.TrimSpace(l.Metadata.Interest); interest != "" {
		return interest
	}
	return DefaultInterest
}

// FirstName is the first word of the display name, or "" when unknown.
func (l Lead) FirstName() string {
	fields := strings.Fields(l.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ExcludedFromOutreach reports whether the lead must never be selected,
// either through a terminal status or a suppression flag.
func (l Lead) ExcludedFromOutreach() bool {
	return l.Status.IsTerminal() || l.Metadata.Suppressed()
}

// HasCRMRecord reports whether the lead is linked to a CRM contact.
func (l Lead) HasCRMRecord() bool {
	return l.CRMID != nil && *l.CRMID != ""
}

// Event types appended to the lead audit log.
const (
	EventIngested       = "lead_ingested"
	EventImported       = "lead_imported"
	EventEmailSent      = "email_sent"
	EventSendObserved   = "send_observed"
	EventReplyDetected  = "reply_detected"
	EventDraftCreated   = "draft_created"
	EventStageReset     = "stage_reset"
	EventIntentAnalyzed = "intent_analyzed"
)

// Event is an append-only audit entry tied to a lead.
type Event struct {
	ID        int64
	LeadID    uuid.UUID
	Type      string
	Details   map[string]any
	CreatedAt time.Time
}
