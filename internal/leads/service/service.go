// Package service implements the lead operations outside the batch cadence:
// ingestion, manual drafts, stage resets and intent analysis.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"outreach_backend/internal/crm"
	"outreach_backend/internal/leads/domain"
	"outreach_backend/internal/leads/repository"
	"outreach_backend/internal/leads/transport"
	"outreach_backend/internal/mail"
	"outreach_backend/internal/oracle"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/phone"

	"github.com/google/uuid"
)

const defaultSource = "Website"

var (
	ErrLeadNotFound     = apperr.NotFound("lead not found")
	ErrCadenceComplete  = apperr.Conflict("lead has received every cadence stage")
	ErrExcludedFromMail = apperr.Conflict("lead is excluded from outreach")
)

// ContentOracle is the subset of the oracle used for single-lead work.
type ContentOracle interface {
	GeneratePersonalized(ctx context.Context, lead domain.Lead, stage int) (oracle.Bundle, error)
	AnalyzeIntent(ctx context.Context, lead domain.Lead, now time.Time) (domain.Intent, error)
}

// Deps wires the service.
type Deps struct {
	Leads       repository.LeadStore
	Oracle      ContentOracle
	Mail        mail.Transport
	Renderer    *mail.Renderer
	CRM         crm.Client
	Log         *logger.Logger
	PhoneRegion string
	Now         func() time.Time
}

type Service struct {
	leads       repository.LeadStore
	oracle      ContentOracle
	mail        mail.Transport
	renderer    *mail.Renderer
	crm         crm.Client
	log         *logger.Logger
	phoneRegion string
	now         func() time.Time
}

func New(d Deps) *Service {
	if d.CRM == nil {
		d.CRM = crm.Noop{}
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		leads:       d.Leads,
		oracle:      d.Oracle,
		mail:        d.Mail,
		renderer:    d.Renderer,
		crm:         d.CRM,
		log:         d.Log,
		phoneRegion: d.PhoneRegion,
		now:         d.Now,
	}
}

// Ingest stores a new lead. A known email is reported as a duplicate and
// nothing is changed. The CRM contact is created best-effort afterwards.
func (s *Service) Ingest(ctx context.Context, req transport.IngestRequest) (transport.IngestResponse, error) {
	email := domain.NormalizeEmail(req.Email)
	duplicate := transport.IngestResponse{Status: transport.IngestDuplicate}

	if _, err := s.leads.GetByEmail(ctx, email); err == nil {
		return duplicate, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return transport.IngestResponse{}, err
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = defaultSource
	}
	lead, err := s.leads.Insert(ctx, repository.InsertParams{
		Email:   email,
		Name:    strings.TrimSpace(req.Name),
		Source:  source,
		Status:  domain.StatusNew,
		Phone:   phone.NormalizeE164(req.Phone, s.phoneRegion),
		Message: strings.TrimSpace(req.Message),
		Metadata: domain.Metadata{
			Company:  strings.TrimSpace(req.Company),
			Interest: strings.TrimSpace(req.Interest),
		},
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return duplicate, nil
	}
	if err != nil {
		return transport.IngestResponse{}, err
	}

	crmID := s.linkContact(ctx, lead)
	details := map[string]any{"source": source}
	if crmID != "" {
		details["crm_id"] = crmID
	}
	if err := s.leads.AppendEvent(ctx, lead.ID, domain.EventIngested, details); err != nil {
		s.log.WithLead(email).Warn("append event failed", "error", err)
	}

	id := lead.ID
	return transport.IngestResponse{Status: transport.IngestCreated, LeadID: &id, CRMID: crmID}, nil
}

// linkContact creates the CRM contact and stores its id. A contact that
// already exists is looked up by email instead.
func (s *Service) linkContact(ctx context.Context, lead domain.Lead) string {
	log := s.log.WithLead(lead.Email)
	id, err := s.crm.UpsertContact(ctx, crm.ContactFields{
		Email:    lead.Email,
		Name:     lead.Name,
		Phone:    lead.Phone,
		Company:  lead.Metadata.Company,
		Interest: lead.Metadata.Interest,
	})
	if errors.Is(err, crm.ErrDuplicate) && id == "" {
		var existing crm.Contact
		existing, err = s.crm.FindByEmail(ctx, lead.Email)
		id = existing.ID
	} else if errors.Is(err, crm.ErrDuplicate) {
		err = nil
	}
	if err != nil {
		log.ExternalCallFailed("crm", "upsert_contact", err)
		return ""
	}
	if id == "" {
		return ""
	}
	if err := s.leads.SetCRMID(ctx, lead.ID, id); err != nil {
		log.Warn("failed to store crm id", "error", err, "crm_id", id)
	}
	return id
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(lead), nil
}

func (s *Service) List(ctx context.Context) (transport.LeadListResponse, error) {
	leads, err := s.leads.ListAll(ctx)
	if err != nil {
		return transport.LeadListResponse{}, err
	}
	items := make([]transport.LeadResponse, 0, len(leads))
	for _, l := range leads {
		items = append(items, toLeadResponse(l))
	}
	return transport.LeadListResponse{Items: items, Total: len(items)}, nil
}

// Reset puts the lead back at stage and reactivates it. It is the only way
// to lower a stage.
func (s *Service) Reset(ctx context.Context, id uuid.UUID, stage int) (transport.LeadResponse, error) {
	if stage < domain.MinStage || stage > domain.MaxStage {
		return transport.LeadResponse{}, apperr.Validation("stage must be between 0 and 4")
	}
	lead, err := s.load(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	meta, err := s.leads.UpdateMetadata(ctx, id, func(m *domain.Metadata) error {
		m.Reset(stage)
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if err := s.leads.UpdateStatus(ctx, id, domain.StatusActive); err != nil {
		return transport.LeadResponse{}, err
	}
	if err := s.leads.AppendEvent(ctx, id, domain.EventStageReset, map[string]any{
		"from": lead.Metadata.SequenceStage,
		"to":   stage,
	}); err != nil {
		s.log.WithLead(lead.Email).Warn("append event failed", "error", err)
	}

	lead.Metadata = meta
	lead.Status = domain.StatusActive
	return toLeadResponse(lead), nil
}

// GenerateDraft writes personalized content for the lead's next stage into
// a mailbox draft and marks that stage as the intended send. The marker is
// what sent-mail reconciliation advances on once the operator sends it.
func (s *Service) GenerateDraft(ctx context.Context, id uuid.UUID) (transport.DraftResponse, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return transport.DraftResponse{}, err
	}
	if lead.ExcludedFromOutreach() {
		return transport.DraftResponse{}, ErrExcludedFromMail
	}
	if lead.Metadata.SequenceStage >= domain.MaxStage {
		return transport.DraftResponse{}, ErrCadenceComplete
	}
	stage := lead.Metadata.SequenceStage + 1

	content, err := s.oracle.GeneratePersonalized(ctx, lead, stage)
	if err != nil {
		return transport.DraftResponse{}, apperr.External("content oracle", err).WithOp("leads.GenerateDraft")
	}
	subject, html, err := s.renderer.Render(content, mail.RecipientOf(lead))
	if err != nil {
		return transport.DraftResponse{}, err
	}
	draftID, err := s.mail.CreateDraft(ctx, lead.Email, subject, html)
	if err != nil {
		return transport.DraftResponse{}, apperr.External("mail", err).WithOp("leads.GenerateDraft")
	}

	if _, err := s.leads.UpdateMetadata(ctx, id, func(m *domain.Metadata) error {
		m.MarkDraft(stage)
		return nil
	}); err != nil {
		return transport.DraftResponse{}, err
	}
	if err := s.leads.AppendEvent(ctx, id, domain.EventDraftCreated, map[string]any{
		"stage":    stage,
		"draft_id": draftID,
		"subject":  subject,
	}); err != nil {
		s.log.WithLead(lead.Email).Warn("append event failed", "error", err)
	}

	return transport.DraftResponse{DraftID: draftID, Stage: stage, Subject: subject}, nil
}

// AnalyzeIntent scores the lead and stores the result. An oracle failure
// stores the fallback verdict instead of failing the request.
// Terminal statuses are kept.
func (s *Service) AnalyzeIntent(ctx context.Context, id uuid.UUID) (transport.Intent, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return transport.Intent{}, err
	}

	intent, err := s.oracle.AnalyzeIntent(ctx, lead, s.now())
	if err != nil {
		s.log.WithLead(lead.Email).ExternalCallFailed("content oracle", "analyze_intent", err)
	}

	if _, err := s.leads.UpdateMetadata(ctx, id, func(m *domain.Metadata) error {
		stored := intent
		m.Intent = &stored
		return nil
	}); err != nil {
		return transport.Intent{}, err
	}
	if !lead.Status.IsTerminal() {
		if err := s.leads.UpdateStatus(ctx, id, domain.StatusAnalyzed); err != nil {
			return transport.Intent{}, err
		}
	}
	if err := s.leads.AppendEvent(ctx, id, domain.EventIntentAnalyzed, map[string]any{
		"score":  intent.Score,
		"intent": intent.Intent,
	}); err != nil {
		s.log.WithLead(lead.Email).Warn("append event failed", "error", err)
	}

	return toIntent(intent), nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.leads.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, ErrLeadNotFound
	}
	return lead, err
}
