// Package reconcile folds what actually happened in the mailbox back into
// lead state: replies from leads and messages we sent outside a blast.
//
// Both passes are idempotent. Leads are processed in parallel and a failure
// on one lead is logged and counted, never returned.
package reconcile

import (
	"context"
	"sync"

	"outreach_backend/internal/crm"
	"outreach_backend/internal/events"
	"outreach_backend/internal/leads/domain"
	"outreach_backend/internal/mail"
	"outreach_backend/internal/oracle"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 5

// LeadStore is the lead access both passes need.
type LeadStore interface {
	ListByStatusNotIn(ctx context.Context, excluded []domain.Status) ([]domain.Lead, error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, mutate func(*domain.Metadata) error) (domain.Metadata, error)
	AppendEvent(ctx context.Context, leadID uuid.UUID, eventType string, details map[string]any) error
}

// Classifier labels observed messages.
type Classifier interface {
	ClassifyReply(ctx context.Context, text string) (oracle.ReplyStatus, error)
	ClassifySent(ctx context.Context, text string) (oracle.SentStatus, error)
}

type Deps struct {
	Leads       LeadStore
	Mail        mail.Transport
	Classifier  Classifier
	CRM         crm.Client
	Bus         events.Bus
	Log         *logger.Logger
	Concurrency int
}

// Syncer runs the reconciliation passes.
type Syncer struct {
	leads       LeadStore
	mail        mail.Transport
	classifier  Classifier
	crm         crm.Client
	bus         events.Bus
	log         *logger.Logger
	concurrency int
}

func New(d Deps) *Syncer {
	if d.CRM == nil {
		d.CRM = crm.Noop{}
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.Concurrency <= 0 {
		d.Concurrency = defaultConcurrency
	}
	return &Syncer{
		leads:       d.Leads,
		mail:        d.Mail,
		classifier:  d.Classifier,
		crm:         d.CRM,
		bus:         d.Bus,
		log:         d.Log,
		concurrency: d.Concurrency,
	}
}

// Summary counts the per-lead outcomes of one pass.
type Summary struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeUpdated
	outcomeFailed
)

type tally struct {
	mu sync.Mutex
	s  Summary
}

func (t *tally) add(o outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Checked++
	switch o {
	case outcomeUpdated:
		t.s.Updated++
	case outcomeFailed:
		t.s.Failed++
	default:
		t.s.Skipped++
	}
}

// forEach runs fn for every lead with bounded parallelism.
func (s *Syncer) forEach(ctx context.Context, leads []domain.Lead, fn func(context.Context, domain.Lead) outcome) Summary {
	var t tally
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, lead := range leads {
		g.Go(func() error {
			if gctx.Err() != nil {
				t.add(outcomeSkipped)
				return nil
			}
			t.add(fn(gctx, lead))
			return nil
		})
	}
	_ = g.Wait()
	return t.s
}

func (s *Syncer) setCRMStatus(ctx context.Context, lead domain.Lead, status string) {
	if status == "" || !lead.HasCRMRecord() {
		return
	}
	if err := s.crm.UpdateProperty(ctx, *lead.CRMID, crm.PropertyLeadStatus, status); err != nil {
		s.log.WithLead(lead.Email).ExternalCallFailed("crm", "update_status", err)
	}
}

func (s *Syncer) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}
