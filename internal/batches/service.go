package batches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outreach_backend/internal/cadence"
	"outreach_backend/internal/crm"
	"outreach_backend/internal/events"
	"outreach_backend/internal/leads/domain"
	"outreach_backend/internal/leads/repository"
	"outreach_backend/internal/mail"
	"outreach_backend/internal/oracle"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

// CohortResolver re-classifies a fresh lead snapshot.
type CohortResolver interface {
	Cohorts(ctx context.Context) (cadence.Cohorts, error)
	Cohort(ctx context.Context, key cadence.CohortKey) ([]domain.Lead, error)
}

// ContentGenerator produces the cohort-generic template.
type ContentGenerator interface {
	GenerateGeneric(ctx context.Context, stage int, interest, feedback string) (oracle.Bundle, error)
}

// StageRecorder persists a delivered send and its audit entry.
type StageRecorder interface {
	UpdateStageFields(ctx context.Context, id uuid.UUID, fields repository.StageFields) (domain.Metadata, error)
	AppendEvent(ctx context.Context, leadID uuid.UUID, eventType string, details map[string]any) error
}

// Reviewer puts a proposal in front of the operator.
type Reviewer interface {
	RequestReview(ctx context.Context, p Proposal) error
}

// Deps wires the service.
type Deps struct {
	Store    Store
	Cohorts  CohortResolver
	Content  ContentGenerator
	Mail     mail.Transport
	Renderer *mail.Renderer
	Leads    StageRecorder
	CRM      crm.Client
	Reviewer Reviewer
	Bus      events.Bus
	Log      *logger.Logger
	Now      func() time.Time
}

// Service runs the propose → sample → blast protocol.
type Service struct {
	store    Store
	cohorts  CohortResolver
	content  ContentGenerator
	mail     mail.Transport
	renderer *mail.Renderer
	leads    StageRecorder
	crm      crm.Client
	reviewer Reviewer
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.CRM == nil {
		d.CRM = crm.Noop{}
	}
	return &Service{
		store:    d.Store,
		cohorts:  d.Cohorts,
		content:  d.Content,
		mail:     d.Mail,
		renderer: d.Renderer,
		leads:    d.Leads,
		crm:      d.CRM,
		reviewer: d.Reviewer,
		bus:      d.Bus,
		log:      d.Log,
		now:      d.Now,
	}
}

// Get returns the live proposal for id.
func (s *Service) Get(ctx context.Context, id string) (Proposal, error) {
	return s.store.Get(ctx, id)
}

// List returns every stored proposal.
func (s *Service) List(ctx context.Context) ([]Proposal, error) {
	return s.store.List(ctx)
}

// ProposeDue proposes a template for every currently eligible cohort.
// A failing cohort is logged and does not stop the others.
func (s *Service) ProposeDue(ctx context.Context) (int, error) {
	cohorts, err := s.cohorts.Cohorts(ctx)
	if err != nil {
		return 0, err
	}
	proposed := 0
	var errs []error
	for _, key := range cohorts.Keys() {
		if _, err := s.Propose(ctx, key, len(cohorts[key])); err != nil {
			s.log.WithBatchID(key.BatchID()).Error("batch proposal failed", "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", key.BatchID(), err))
			continue
		}
		proposed++
	}
	return proposed, errors.Join(errs...)
}

// Propose generates a fresh template for key and replaces the live proposal.
// On generation failure nothing is stored.
func (s *Service) Propose(ctx context.Context, key cadence.CohortKey, leadCount int) (Proposal, error) {
	id := key.BatchID()
	content, err := s.content.GenerateGeneric(ctx, key.Stage, key.Interest, "")
	if err != nil {
		return Proposal{}, err
	}
	version, err := s.store.NextVersion(ctx)
	if err != nil {
		return Proposal{}, err
	}

	now := s.now().UTC()
	var superseded []string
	p, err := s.store.Upsert(ctx, id, func(current *Proposal) (Proposal, error) {
		if current != nil && current.Status == StatusBlasting {
			return Proposal{}, fmt.Errorf("%w: %s is blasting", ErrInvalidTransition, id)
		}
		if current != nil && !current.Status.Closed() {
			superseded = current.SampleDraftIDs
		}
		return Proposal{
			Version:   version,
			Stage:     key.Stage,
			Interest:  key.Interest,
			Content:   content,
			LeadCount: leadCount,
			Status:    StatusPendingTemplate,
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	})
	if err != nil {
		return Proposal{}, err
	}

	s.deleteDrafts(ctx, id, superseded)
	s.requestReview(ctx, p)
	if s.bus != nil {
		s.bus.Publish(ctx, events.BatchProposed{
			BaseEvent: events.NewBaseEvent(),
			BatchID:   p.ID,
			Version:   p.Version,
			Stage:     p.Stage,
			Interest:  p.Interest,
			LeadCount: p.LeadCount,
		})
	}
	return p, nil
}

// Refine regenerates the template with operator feedback.
func (s *Service) Refine(ctx context.Context, id string, version int64, feedback string) (Proposal, error) {
	current, err := s.load(ctx, id, version)
	if err != nil {
		return Proposal{}, err
	}
	if err := current.transition(StatusPendingTemplate); err != nil {
		return Proposal{}, err
	}

	content, err := s.content.GenerateGeneric(ctx, current.Stage, current.Interest, feedback)
	if err != nil {
		return Proposal{}, err
	}

	p, err := s.store.Upsert(ctx, id, func(cur *Proposal) (Proposal, error) {
		if cur == nil {
			return Proposal{}, ErrProposalNotFound
		}
		if err := cur.checkVersion(current.Version); err != nil {
			return Proposal{}, err
		}
		if err := cur.transition(StatusPendingTemplate); err != nil {
			return Proposal{}, err
		}
		next := *cur
		next.Content = content
		next.Feedback = feedback
		next.UpdatedAt = s.now().UTC()
		return next, nil
	})
	if err != nil {
		return Proposal{}, err
	}
	s.requestReview(ctx, p)
	return p, nil
}

// Regenerate is Refine without feedback.
func (s *Service) Regenerate(ctx context.Context, id string, version int64) (Proposal, error) {
	return s.Refine(ctx, id, version, "")
}

// MaterializeSample creates one review draft for the first current member of
// the cohort. It never mutates a lead. Each call creates a new draft.
func (s *Service) MaterializeSample(ctx context.Context, id string, version int64) (Proposal, error) {
	current, err := s.load(ctx, id, version)
	if err != nil {
		return Proposal{}, err
	}
	if err := current.transition(StatusSampleCreated); err != nil {
		return Proposal{}, err
	}

	members, err := s.cohorts.Cohort(ctx, current.Key())
	if err != nil {
		return Proposal{}, err
	}
	if len(members) == 0 {
		return Proposal{}, ErrCohortEmpty
	}
	sample := members[0]

	subject, html, err := s.renderer.Render(current.Content, mail.RecipientOf(sample))
	if err != nil {
		return Proposal{}, err
	}
	draftID, err := s.mail.CreateDraft(ctx, sample.Email, mail.SamplePrefix+subject, html)
	if err != nil {
		return Proposal{}, fmt.Errorf("create sample draft: %w", err)
	}

	p, err := s.store.Upsert(ctx, id, func(cur *Proposal) (Proposal, error) {
		if cur == nil {
			return Proposal{}, ErrProposalNotFound
		}
		if err := cur.checkVersion(current.Version); err != nil {
			return Proposal{}, err
		}
		if err := cur.transition(StatusSampleCreated); err != nil {
			return Proposal{}, err
		}
		next := *cur
		next.Status = StatusSampleCreated
		next.SampleDraftID = draftID
		next.SampleDraftIDs = append(append([]string(nil), cur.SampleDraftIDs...), draftID)
		next.SampleRecipient = sample.Email
		next.LeadCount = len(members)
		next.UpdatedAt = s.now().UTC()
		return next, nil
	})
	if err != nil {
		s.deleteDrafts(ctx, id, []string{draftID})
		return Proposal{}, err
	}
	return p, nil
}

// ExecuteBlast sends the approved content to every current cohort member.
// The proposal is moved to blasting before the first send, so a concurrent
// or repeated confirmation fails instead of sending twice.
func (s *Service) ExecuteBlast(ctx context.Context, id string, version int64) (BlastResult, error) {
	current, err := s.load(ctx, id, version)
	if err != nil {
		return BlastResult{}, err
	}
	if err := current.transition(StatusBlasting); err != nil {
		return BlastResult{}, err
	}

	members, err := s.cohorts.Cohort(ctx, current.Key())
	if err != nil {
		return BlastResult{}, err
	}
	if len(members) == 0 {
		return BlastResult{}, ErrCohortEmpty
	}

	p, err := s.store.Upsert(ctx, id, func(cur *Proposal) (Proposal, error) {
		if cur == nil {
			return Proposal{}, ErrProposalNotFound
		}
		if err := cur.checkVersion(current.Version); err != nil {
			return Proposal{}, err
		}
		if err := cur.transition(StatusBlasting); err != nil {
			return Proposal{}, err
		}
		next := *cur
		next.Status = StatusBlasting
		next.UpdatedAt = s.now().UTC()
		return next, nil
	})
	if err != nil {
		return BlastResult{}, err
	}

	// A started blast always covers the whole cohort.
	ctx = context.WithoutCancel(ctx)

	log := s.log.WithBatchID(id)
	result := BlastResult{BatchID: id}
	for _, lead := range members {
		if s.sendOne(ctx, p, lead) {
			result.Sent++
		} else {
			result.Failed++
		}
	}

	s.deleteDrafts(ctx, id, p.SampleDraftIDs)

	_, err = s.store.Upsert(ctx, id, func(cur *Proposal) (Proposal, error) {
		if cur == nil {
			return Proposal{}, ErrProposalNotFound
		}
		next := *cur
		next.Status = StatusBlasted
		next.Sent = result.Sent
		next.Failed = result.Failed
		next.SampleDraftID = ""
		next.SampleDraftIDs = nil
		next.UpdatedAt = s.now().UTC()
		return next, nil
	})
	if err != nil {
		log.Error("failed to close blasted proposal", "error", err)
	}

	log.Info("blast finished", "sent", result.Sent, "failed", result.Failed)
	if s.bus != nil {
		s.bus.Publish(ctx, events.BatchBlasted{
			BaseEvent: events.NewBaseEvent(),
			BatchID:   id,
			Sent:      result.Sent,
			Failed:    result.Failed,
		})
	}
	return result, nil
}

// sendOne delivers to a single lead. Failures are logged and reported as false.
func (s *Service) sendOne(ctx context.Context, p Proposal, lead domain.Lead) bool {
	log := s.log.WithBatchID(p.ID).WithLead(lead.Email)

	subject, html, err := s.renderer.Render(p.Content, mail.RecipientOf(lead))
	if err != nil {
		log.Warn("render failed", "error", err)
		return false
	}
	messageID, err := s.mail.Send(ctx, lead.Email, subject, html)
	if err != nil {
		log.ExternalCallFailed("mail", "send", err)
		return false
	}

	sentAt := s.now().UTC()
	if _, err := s.leads.UpdateStageFields(ctx, lead.ID, repository.StageFields{Stage: p.Stage, LastContactedAt: sentAt}); err != nil {
		log.Error("sent but stage update failed", "error", err, "message_id", messageID)
	}
	if err := s.leads.AppendEvent(ctx, lead.ID, domain.EventEmailSent, map[string]any{
		"batch_id":   p.ID,
		"stage":      p.Stage,
		"message_id": messageID,
		"subject":    subject,
	}); err != nil {
		log.Warn("append event failed", "error", err)
	}

	if lead.HasCRMRecord() {
		if err := s.crm.UpdateProperty(ctx, *lead.CRMID, crm.PropertyLeadStatus, CRMStatusForStage(p.Stage)); err != nil {
			log.ExternalCallFailed("crm", "update_status", err)
		}
	}
	return true
}

// CRMStatusForStage is the CRM status after a send at stage.
func CRMStatusForStage(stage int) string {
	return crm.StatusAfterSend(stage, domain.MaxStage)
}

// Cancel closes a proposal and removes its review drafts.
func (s *Service) Cancel(ctx context.Context, id string, version int64) (Proposal, error) {
	var drafts []string
	p, err := s.store.Upsert(ctx, id, func(cur *Proposal) (Proposal, error) {
		if cur == nil {
			return Proposal{}, ErrProposalNotFound
		}
		if err := cur.checkVersion(version); err != nil {
			return Proposal{}, err
		}
		if err := cur.transition(StatusCancelled); err != nil {
			return Proposal{}, err
		}
		drafts = cur.SampleDraftIDs
		next := *cur
		next.Status = StatusCancelled
		next.SampleDraftID = ""
		next.SampleDraftIDs = nil
		next.UpdatedAt = s.now().UTC()
		return next, nil
	})
	if err != nil {
		return Proposal{}, err
	}
	s.deleteDrafts(ctx, id, drafts)
	return p, nil
}

func (s *Service) load(ctx context.Context, id string, version int64) (Proposal, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Proposal{}, err
	}
	if err := p.checkVersion(version); err != nil {
		return Proposal{}, err
	}
	return p, nil
}

func (s *Service) deleteDrafts(ctx context.Context, id string, drafts []string) {
	for _, draftID := range drafts {
		if err := s.mail.DeleteDraft(ctx, draftID); err != nil {
			s.log.WithBatchID(id).ExternalCallFailed("mail", "delete_draft", err)
		}
	}
}

func (s *Service) requestReview(ctx context.Context, p Proposal) {
	if s.reviewer == nil {
		return
	}
	if err := s.reviewer.RequestReview(ctx, p); err != nil {
		s.log.WithBatchID(p.ID).ExternalCallFailed("notification", "request_review", err)
	}
}
