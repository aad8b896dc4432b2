package reconcile

import (
	"context"

	"outreach_backend/internal/crm"
	"outreach_backend/internal/events"
	"outreach_backend/internal/leads/domain"
	"outreach_backend/internal/mail"
)

const sentSearchLimit = 5

// SentMail looks for messages we sent to active leads after their last
// recorded contact. A newer message with an outstanding draft marker
// confirms that stage; without a marker it only refreshes the contact time.
//
// Any newer message to the address counts, including unrelated mail. That
// is a heuristic, not proof of a cadence send.
func (s *Syncer) SentMail(ctx context.Context) (Summary, error) {
	leads, err := s.leads.ListByStatusNotIn(ctx, domain.TerminalStatuses())
	if err != nil {
		return Summary{}, err
	}
	var scoped []domain.Lead
	for _, l := range leads {
		if l.Email != "" && !l.ExcludedFromOutreach() {
			scoped = append(scoped, l)
		}
	}
	summary := s.forEach(ctx, scoped, s.reconcileSent)
	s.log.Info("sent reconciliation finished", "checked", summary.Checked, "updated", summary.Updated, "failed", summary.Failed)
	return summary, nil
}

func (s *Syncer) reconcileSent(ctx context.Context, lead domain.Lead) outcome {
	log := s.log.WithLead(lead.Email)

	msgs, err := s.mail.SearchMessages(ctx, mail.SentQuery(lead.Email), sentSearchLimit)
	if err != nil {
		log.ExternalCallFailed("mail", "search_sent", err)
		return outcomeFailed
	}
	newest, ok := newestAfter(msgs, lead.Metadata)
	if !ok {
		return outcomeSkipped
	}

	fromStage := lead.Metadata.SequenceStage
	var result domain.ObservedSend
	if _, err := s.leads.UpdateMetadata(ctx, lead.ID, func(m *domain.Metadata) error {
		result = m.ConfirmObservedSend(newest.SentAt)
		return nil
	}); err != nil {
		log.Warn("observed send not stored", "error", err)
		return outcomeFailed
	}
	if !result.Changed {
		return outcomeSkipped
	}

	if err := s.leads.AppendEvent(ctx, lead.ID, domain.EventSendObserved, map[string]any{
		"message_id": newest.ID,
		"sent_at":    newest.SentAt.UTC(),
		"advanced":   result.Advanced,
		"stage":      result.Stage,
	}); err != nil {
		log.Warn("append event failed", "error", err)
	}

	s.publish(ctx, events.EmailSent{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Email:     lead.Email,
		Stage:     result.Stage,
		Manual:    true,
	})

	if !result.Advanced {
		return outcomeUpdated
	}

	s.setCRMStatus(ctx, lead, crm.StatusAfterSend(result.Stage, domain.MaxStage))
	if lead.HasCRMRecord() {
		if err := s.crm.LogNote(ctx, *lead.CRMID, crm.NoteEmailSent); err != nil {
			log.ExternalCallFailed("crm", "log_note", err)
		}
	}
	if result.Stage != fromStage {
		s.publish(ctx, events.SequenceAdvanced{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			Email:     lead.Email,
			FromStage: fromStage,
			ToStage:   result.Stage,
		})
	}
	return outcomeUpdated
}

// newestAfter picks the newest message not yet accounted for.
func newestAfter(msgs []mail.Message, meta domain.Metadata) (mail.Message, bool) {
	var best mail.Message
	found := false
	for _, m := range msgs {
		if m.SentAt.IsZero() {
			continue
		}
		if meta.LastContactedAt != nil && !m.SentAt.After(*meta.LastContactedAt) {
			continue
		}
		if !found || m.SentAt.After(best.SentAt) {
			best, found = m, true
		}
	}
	return best, found
}
