// Package events defines the cadence domain events. The bus itself lives
// in platform/events and is re-exported here so modules import one package.
package events

import (
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadImported is published when CRM reconciliation creates a local lead.
type LeadImported struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Source string    `json:"source"`
}

func (e LeadImported) EventName() string { return "leads.lead.imported" }

// ReplyDetected is published after a lead-originated reply was classified.
type ReplyDetected struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CRMStatus string    `json:"crmStatus,omitempty"`
	Snippet   string    `json:"snippet"`
}

func (e ReplyDetected) EventName() string { return "cadence.reply.detected" }

// EmailSent is published when a cadence message was observed as delivered.
type EmailSent struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Email  string    `json:"email"`
	Stage  int       `json:"stage"`
	Manual bool      `json:"manual"`
}

func (e EmailSent) EventName() string { return "cadence.email.sent" }

// SequenceAdvanced is published when a lead's stage moved forward.
type SequenceAdvanced struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	Email     string    `json:"email"`
	FromStage int       `json:"fromStage"`
	ToStage   int       `json:"toStage"`
}

func (e SequenceAdvanced) EventName() string { return "cadence.sequence.advanced" }

// =============================================================================
// Batch Domain Events
// =============================================================================

// BatchProposed is published when a cohort template awaits review.
type BatchProposed struct {
	BaseEvent
	BatchID   string `json:"batchId"`
	Version   int64  `json:"version"`
	Stage     int    `json:"stage"`
	Interest  string `json:"interest"`
	LeadCount int    `json:"leadCount"`
}

func (e BatchProposed) EventName() string { return "batches.batch.proposed" }

// BatchBlasted is published after a blast finished.
type BatchBlasted struct {
	BaseEvent
	BatchID string `json:"batchId"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
}

func (e BatchBlasted) EventName() string { return "batches.batch.blasted" }

// =============================================================================
// Cycle Events
// =============================================================================

// CycleFailed is published when one step of the cadence cycle failed.
type CycleFailed struct {
	BaseEvent
	Step  string `json:"step"`
	Error string `json:"error"`
}

func (e CycleFailed) EventName() string { return "cycle.step.failed" }
