package repository

import (
	"context"
	"time"

	"outreach_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	GetByEmail(ctx context.Context, email string) (domain.Lead, error)
	// ListByStatusNotIn returns leads whose status is outside excluded, ordered by creation.
	ListByStatusNotIn(ctx context.Context, excluded []domain.Status) ([]domain.Lead, error)
	ListAll(ctx context.Context) ([]domain.Lead, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	// Insert creates a lead. An existing email yields ErrDuplicate and no mutation.
	Insert(ctx context.Context, params InsertParams) (domain.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error
	UpdateProfile(ctx context.Context, id uuid.UUID, params ProfileUpdate) error
	SetCRMID(ctx context.Context, id uuid.UUID, crmID string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MetadataWriter mutates cadence state. Each call is a single-lead
// read-modify-write; the result is validated before it is stored.
type MetadataWriter interface {
	UpdateMetadata(ctx context.Context, id uuid.UUID, mutate func(*domain.Metadata) error) (domain.Metadata, error)
	UpdateStageFields(ctx context.Context, id uuid.UUID, fields StageFields) (domain.Metadata, error)
}

// EventWriter appends to the lead audit log.
type EventWriter interface {
	AppendEvent(ctx context.Context, leadID uuid.UUID, eventType string, details map[string]any) error
}

// LeadStore is the full store contract used by the composition root.
type LeadStore interface {
	LeadReader
	LeadWriter
	MetadataWriter
	EventWriter
}

// InsertParams holds the fields of a new lead.
type InsertParams struct {
	Email    string
	Name     string
	Source   string
	Status   domain.Status
	Phone    string
	Message  string
	CRMID    *string
	Metadata domain.Metadata
}

// ProfileUpdate changes descriptive fields. Nil fields are left untouched.
type ProfileUpdate struct {
	Name     *string
	Company  *string
	Interest *string
}

// StageFields records one delivered cadence message.
type StageFields struct {
	Stage           int
	LastContactedAt time.Time
}

// Compile-time check that Repository satisfies LeadStore.
var _ LeadStore = (*Repository)(nil)
