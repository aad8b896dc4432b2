package notification

import (
	"context"
	"fmt"

	"outreach_backend/internal/events"
	"outreach_backend/platform/logger"
)

// Module turns domain events into channel posts.
type Module struct {
	slack *Slack
	log   *logger.Logger
}

func New(slack *Slack, log *logger.Logger) *Module {
	return &Module{slack: slack, log: log}
}

func (m *Module) Name() string { return "notification" }

// Slack exposes the shared client for reviewers and responders.
func (m *Module) Slack() *Slack { return m.slack }

// RegisterHandlers subscribes to the events operators want to see. Blast
// results are reported by the Responder on the review message itself.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.LeadImported{}.EventName(), m)
	bus.Subscribe(events.ReplyDetected{}.EventName(), m)
	bus.Subscribe(events.EmailSent{}.EventName(), m)
	bus.Subscribe(events.SequenceAdvanced{}.EventName(), m)
	bus.Subscribe(events.CycleFailed{}.EventName(), m)
}

func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadImported:
		return m.slack.Info(ctx, fmt.Sprintf(":new: New lead imported: %s <%s> (%s)", e.Name, e.Email, e.Source))
	case events.ReplyDetected:
		text := fmt.Sprintf(":speech_balloon: Reply from %s classified as *%s*", e.Email, e.Status)
		if e.CRMStatus != "" {
			text += fmt.Sprintf(", CRM set to %s", e.CRMStatus)
		}
		return m.slack.Info(ctx, text)
	case events.EmailSent:
		if !e.Manual {
			return nil
		}
		return m.slack.Info(ctx, fmt.Sprintf(":envelope: Manual email to %s detected (stage %d)", e.Email, e.Stage))
	case events.SequenceAdvanced:
		return m.slack.Info(ctx, fmt.Sprintf(":arrow_forward: %s moved from stage %d to %d", e.Email, e.FromStage, e.ToStage))
	case events.CycleFailed:
		return m.slack.Error(ctx, fmt.Sprintf("cycle step %s failed: %s", e.Step, e.Error))
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}
