// Package crm talks to the external contact store (HubSpot).
package crm

import (
	"context"
	"errors"
	"strings"
)

// Lead status values written to hs_lead_status.
const (
	StatusNew                = "NEW"
	StatusOpen               = "OPEN"
	StatusOpenDeal           = "OPEN_DEAL"
	StatusAttemptedToContact = "ATTEMPTED_TO_CONTACT"
	StatusConnected          = "CONNECTED"
	StatusUnqualified        = "UNQUALIFIED"
)

// StatusAfterSend is the lead status once the cadence message for stage
// went out. Sending the final stage closes the lead.
func StatusAfterSend(stage, finalStage int) string {
	if stage >= finalStage {
		return StatusUnqualified
	}
	return StatusAttemptedToContact
}

// PropertyLeadStatus is the contact property carrying the sales status.
const PropertyLeadStatus = "hs_lead_status"

// NoteEmailSent is logged against a contact when a send is confirmed.
const NoteEmailSent = "Email Sent"

// ErrDuplicate reports that a contact with the same email already exists.
var ErrDuplicate = errors.New("crm: contact already exists")

// ErrDisabled is returned by listings when no CRM is configured.
var ErrDisabled = errors.New("crm: not configured")

// ErrNotFound reports a lookup that matched no contact.
var ErrNotFound = errors.New("crm: contact not found")

// Contact is the subset of contact properties the cadence uses.
type Contact struct {
	ID             string
	Email          string
	FirstName      string
	LastName       string
	Company        string
	Interest       string
	LifecycleStage string
	LeadStatus     string
}

// ContactFields are the properties written on create.
type ContactFields struct {
	Email    string
	Name     string
	Phone    string
	Company  string
	Interest string
}

// SplitName splits a display name on the first space into first and last.
func SplitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, ' '); i >= 0 {
		return name[:i], strings.TrimSpace(name[i+1:])
	}
	return name, ""
}

// Client is the CRM contract.
type Client interface {
	// UpsertContact creates a contact. On a duplicate it returns the existing
	// id together with ErrDuplicate.
	UpsertContact(ctx context.Context, fields ContactFields) (string, error)
	UpdateProperty(ctx context.Context, contactID, name, value string) error
	// ListContacts pages through every contact, pageSize at a time.
	ListContacts(ctx context.Context, pageSize int) ([]Contact, error)
	FindByEmail(ctx context.Context, email string) (Contact, error)
	LogNote(ctx context.Context, contactID, body string) error
}

// Noop is used when the CRM is not configured. Writes succeed silently and
// listings fail, so import reconciliation never deletes local leads.
type Noop struct{}

func (Noop) UpsertContact(context.Context, ContactFields) (string, error) { return "", nil }
func (Noop) UpdateProperty(context.Context, string, string, string) error  { return nil }
func (Noop) ListContacts(context.Context, int) ([]Contact, error)          { return nil, ErrDisabled }
func (Noop) FindByEmail(context.Context, string) (Contact, error)          { return Contact{}, ErrNotFound }
func (Noop) LogNote(context.Context, string, string) error                 { return nil }
