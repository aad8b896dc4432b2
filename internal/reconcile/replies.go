package reconcile

import (
	"context"

	"outreach_backend/internal/crm"
	"outreach_backend/internal/events"
	"outreach_backend/internal/leads/domain"
	"outreach_backend/internal/mail"
	"outreach_backend/internal/oracle"
	"outreach_backend/platform/sanitize"
)

const snippetRunes = 200

// ReplyEffect is what a classified reply does to a lead.
type ReplyEffect struct {
	// Skip means the reply changes nothing at all.
	Skip          bool
	CRMStatus     string
	MeetingBooked bool
	DoNotContact  bool
}

// EffectOf maps a reply status to its effect. Every non-skipped reply also
// sets has_replied.
func EffectOf(status oracle.ReplyStatus) ReplyEffect {
	switch status {
	case oracle.ReplyOutOfOffice:
		return ReplyEffect{Skip: true}
	case oracle.ReplyInterested:
		return ReplyEffect{CRMStatus: crm.StatusOpenDeal}
	case oracle.ReplyMeetingBooked:
		return ReplyEffect{CRMStatus: crm.StatusConnected, MeetingBooked: true}
	case oracle.ReplyNotInterested, oracle.ReplyWrongPerson:
		return ReplyEffect{CRMStatus: crm.StatusUnqualified}
	case oracle.ReplyUnsubscribe:
		return ReplyEffect{CRMStatus: crm.StatusUnqualified, DoNotContact: true}
	case oracle.ReplyNoChange:
		return ReplyEffect{}
	default:
		return ReplyEffect{CRMStatus: crm.StatusConnected}
	}
}

// SentCRMStatus maps the classification of our own latest message.
func SentCRMStatus(status oracle.SentStatus) string {
	switch status {
	case oracle.SentNew:
		return crm.StatusNew
	case oracle.SentAttemptedToContact:
		return crm.StatusAttemptedToContact
	case oracle.SentConnected:
		return crm.StatusConnected
	}
	return ""
}

// repliesScope is every non-terminal lead we have a conversation with.
func repliesScope(l domain.Lead) bool {
	return l.Email != "" && (l.HasCRMRecord() || l.Metadata.LastContactedAt != nil || l.Metadata.SequenceStage > 0)
}

// Replies inspects the latest message in each lead's thread.
func (s *Syncer) Replies(ctx context.Context) (Summary, error) {
	leads, err := s.leads.ListByStatusNotIn(ctx, domain.TerminalStatuses())
	if err != nil {
		return Summary{}, err
	}
	var scoped []domain.Lead
	for _, l := range leads {
		if repliesScope(l) {
			scoped = append(scoped, l)
		}
	}
	summary := s.forEach(ctx, scoped, s.reconcileReply)
	s.log.Info("reply reconciliation finished", "checked", summary.Checked, "updated", summary.Updated, "failed", summary.Failed)
	return summary, nil
}

func (s *Syncer) reconcileReply(ctx context.Context, lead domain.Lead) outcome {
	log := s.log.WithLead(lead.Email)

	msgs, err := s.mail.SearchMessages(ctx, mail.ThreadQuery(lead.Email), 1)
	if err != nil {
		log.ExternalCallFailed("mail", "search_thread", err)
		return outcomeFailed
	}
	if len(msgs) == 0 {
		return outcomeSkipped
	}
	latest := msgs[0]

	if !latest.FromAddress(lead.Email) {
		status, err := s.classifier.ClassifySent(ctx, latest.Text())
		if err != nil {
			log.ExternalCallFailed("oracle", "classify_sent", err)
			return outcomeFailed
		}
		if crmStatus := SentCRMStatus(status); crmStatus != "" {
			s.setCRMStatus(ctx, lead, crmStatus)
			return outcomeUpdated
		}
		return outcomeSkipped
	}

	if latest.ID != "" && latest.ID == lead.Metadata.LastReplyMessageID {
		log.LeadSkipped(lead.Email, "reply already processed")
		return outcomeSkipped
	}

	status, err := s.classifier.ClassifyReply(ctx, latest.Text())
	if err != nil {
		log.ExternalCallFailed("oracle", "classify_reply", err)
		return outcomeFailed
	}
	effect := EffectOf(status)
	if effect.Skip {
		log.LeadSkipped(lead.Email, string(status))
		return outcomeSkipped
	}

	if _, err := s.leads.UpdateMetadata(ctx, lead.ID, func(m *domain.Metadata) error {
		m.HasReplied = true
		if effect.MeetingBooked {
			m.MeetingBooked = true
		}
		if effect.DoNotContact {
			m.DoNotContact = true
		}
		m.LastReplyMessageID = latest.ID
		m.LastReplyStatus = string(status)
		return nil
	}); err != nil {
		log.Warn("reply flags not stored", "error", err)
		return outcomeFailed
	}

	snippet := sanitize.Truncate(latest.Snippet, snippetRunes)
	if err := s.leads.AppendEvent(ctx, lead.ID, domain.EventReplyDetected, map[string]any{
		"message_id": latest.ID,
		"status":     string(status),
		"crm_status": effect.CRMStatus,
		"snippet":    snippet,
	}); err != nil {
		log.Warn("append event failed", "error", err)
	}

	s.setCRMStatus(ctx, lead, effect.CRMStatus)
	s.publish(ctx, events.ReplyDetected{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Email:     lead.Email,
		Status:    string(status),
		CRMStatus: effect.CRMStatus,
		Snippet:   snippet,
	})
	return outcomeUpdated
}
