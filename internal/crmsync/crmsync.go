// Package crmsync mirrors the CRM contact list into the lead store.
package crmsync

import (
	"context"
	"errors"
	"strings"
	"sync"

	"outreach_backend/internal/crm"
	"outreach_backend/internal/events"
	"outreach_backend/internal/leads/domain"
	"outreach_backend/internal/leads/repository"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// SourceImport marks leads created from the CRM.
	SourceImport  = "HubSpot Import"
	pageSize      = 100
	fallbackName  = "Prospect"
	importWorkers = 5
)

// LeadStore is the lead access the import needs.
type LeadStore interface {
	ListAll(ctx context.Context) ([]domain.Lead, error)
	Insert(ctx context.Context, params repository.InsertParams) (domain.Lead, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, params repository.ProfileUpdate) error
	SetCRMID(ctx context.Context, id uuid.UUID, crmID string) error
	Delete(ctx context.Context, id uuid.UUID) error
	AppendEvent(ctx context.Context, leadID uuid.UUID, eventType string, details map[string]any) error
}

// Summary counts what one import did.
type Summary struct {
	Contacts int `json:"contacts"`
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
	Failed   int `json:"failed"`
}

type Importer struct {
	crm   crm.Client
	leads LeadStore
	bus   events.Bus
	log   *logger.Logger
}

func New(client crm.Client, leads LeadStore, bus events.Bus, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Discard()
	}
	return &Importer{crm: client, leads: leads, bus: bus, log: log}
}

// Import creates and updates local leads from the CRM listing and removes
// CRM-linked leads the CRM no longer has. Nothing is removed unless the
// listing completed and returned at least one contact.
func (im *Importer) Import(ctx context.Context) (Summary, error) {
	contacts, err := im.crm.ListContacts(ctx, pageSize)
	if errors.Is(err, crm.ErrDisabled) {
		im.log.Info("crm import skipped, crm not configured")
		return Summary{}, nil
	}
	if err != nil {
		return Summary{}, err
	}

	local, err := im.leads.ListAll(ctx)
	if err != nil {
		return Summary{}, err
	}
	byEmail := make(map[string]domain.Lead, len(local))
	for _, l := range local {
		byEmail[domain.NormalizeEmail(l.Email)] = l
	}

	var (
		mu      sync.Mutex
		summary Summary
		listed  int
		seen    = make(map[string]bool, len(contacts))
	)
	count := func(fn func(*Summary)) {
		mu.Lock()
		fn(&summary)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importWorkers)
	for _, contact := range contacts {
		email := domain.NormalizeEmail(contact.Email)
		if email == "" {
			continue
		}
		listed++
		seen[email] = true
		existing, exists := byEmail[email]

		g.Go(func() error {
			var err error
			var changed bool
			if exists {
				changed, err = im.update(gctx, existing, contact)
			} else {
				err = im.create(gctx, email, contact)
				changed = err == nil
			}
			switch {
			case err != nil:
				im.log.WithLead(email).Warn("crm import failed for contact", "error", err)
				count(func(s *Summary) { s.Failed++ })
			case changed && exists:
				count(func(s *Summary) { s.Updated++ })
			case changed:
				count(func(s *Summary) { s.Created++ })
			}
			return nil
		})
	}
	_ = g.Wait()
	summary.Contacts = listed

	if listed > 0 {
		for email, lead := range byEmail {
			if seen[email] || !lead.HasCRMRecord() {
				continue
			}
			if err := im.leads.Delete(ctx, lead.ID); err != nil {
				im.log.WithLead(email).Warn("stale lead not deleted", "error", err)
				summary.Failed++
				continue
			}
			summary.Deleted++
		}
	}

	im.log.Info("crm import finished",
		"contacts", summary.Contacts, "created", summary.Created,
		"updated", summary.Updated, "deleted", summary.Deleted, "failed", summary.Failed)
	return summary, nil
}

func (im *Importer) create(ctx context.Context, email string, c crm.Contact) error {
	crmID := c.ID
	name := NormalizeName(c.FirstName, c.LastName, email)
	lead, err := im.leads.Insert(ctx, repository.InsertParams{
		Email:  email,
		Name:   name,
		Source: SourceImport,
		Status: domain.StatusNew,
		CRMID:  &crmID,
		Metadata: domain.Metadata{
			Company:  strings.TrimSpace(c.Company),
			Interest: strings.TrimSpace(c.Interest),
		},
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := im.leads.AppendEvent(ctx, lead.ID, domain.EventImported, map[string]any{"crm_id": crmID}); err != nil {
		im.log.WithLead(email).Warn("append event failed", "error", err)
	}
	if im.bus != nil {
		im.bus.Publish(ctx, events.LeadImported{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			Email:     email,
			Name:      name,
			Source:    SourceImport,
		})
	}
	return nil
}

func (im *Importer) update(ctx context.Context, lead domain.Lead, c crm.Contact) (bool, error) {
	changed := false
	if !lead.HasCRMRecord() && c.ID != "" {
		if err := im.leads.SetCRMID(ctx, lead.ID, c.ID); err != nil {
			return false, err
		}
		changed = true
	}

	var upd repository.ProfileUpdate
	if name := NormalizeName(c.FirstName, c.LastName, lead.Email); name != lead.Name && (c.FirstName != "" || c.LastName != "") {
		upd.Name = &name
	}
	if company := strings.TrimSpace(c.Company); company != "" && company != lead.Metadata.Company {
		upd.Company = &company
	}
	if interest := strings.TrimSpace(c.Interest); interest != "" && interest != lead.Metadata.Interest {
		upd.Interest = &interest
	}
	if upd.Name == nil && upd.Company == nil && upd.Interest == nil {
		return changed, nil
	}
	if err := im.leads.UpdateProfile(ctx, lead.ID, upd); err != nil {
		return changed, err
	}
	return true, nil
}

// NormalizeName picks a display name: "first last", then either part, then
// the title-cased local part of the email, then "Prospect".
func NormalizeName(first, last, email string) string {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	}

	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	if local = strings.Join(strings.Fields(local), " "); local != "" {
		return cases.Title(language.English).String(local)
	}
	return fallbackName
}
