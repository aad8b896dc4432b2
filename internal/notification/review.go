package notification

import (
	"context"
	"errors"
	"fmt"

	"outreach_backend/internal/batches"
)

// BatchReviewer posts proposal review messages.
type BatchReviewer struct {
	slack  *Slack
	sender string
}

func NewBatchReviewer(slack *Slack, senderName string) *BatchReviewer {
	return &BatchReviewer{slack: slack, sender: senderName}
}

func (r *BatchReviewer) RequestReview(ctx context.Context, p batches.Proposal) error {
	return r.slack.Post(ctx, ProposalReview(p, r.sender))
}

// Responder reports the outcome of an operator action back to the message
// that carried it. Actions without a response URL are reported to the
// channel instead.
type Responder struct {
	slack *Slack
}

func NewResponder(slack *Slack) *Responder {
	return &Responder{slack: slack}
}

// Report renders the outcome of a and delivers it.
func (r *Responder) Report(ctx context.Context, out batches.Outcome, err error) error {
	msg := OutcomeMessage(out, err)
	if out.Action.ResponseURL != "" {
		return r.slack.Respond(ctx, out.Action.ResponseURL, msg)
	}
	return r.slack.Post(ctx, msg)
}

// OutcomeMessage maps an applied action to the message that replaces or
// follows the interactive one.
func OutcomeMessage(out batches.Outcome, err error) Message {
	id := out.Action.BatchID
	if err != nil {
		var text string
		switch {
		case errors.Is(err, batches.ErrStaleProposal):
			text = fmt.Sprintf(":hourglass: %s was re-proposed. Use the newest review message.", id)
		case errors.Is(err, batches.ErrCohortEmpty):
			text = fmt.Sprintf(":warning: %s: cohort now empty, nothing to send.", id)
		case errors.Is(err, batches.ErrInvalidTransition):
			text = fmt.Sprintf(":no_entry: %s was already handled.", id)
		case errors.Is(err, batches.ErrProposalNotFound):
			text = fmt.Sprintf(":grey_question: %s no longer exists.", id)
		default:
			text = fmt.Sprintf("%s%s %s failed: %v", errorPrefix, id, out.Action.Kind, err)
		}
		return Message{Text: text, ResponseType: "ephemeral"}
	}

	switch out.Action.Kind {
	case batches.ActionApprove:
		return SampleReview(out.Proposal)
	case batches.ActionConfirm:
		if out.Blast != nil {
			return BlastSummary(*out.Blast)
		}
	case batches.ActionCancel:
		text := fmt.Sprintf(":x: Batch %s cancelled.", id)
		return Message{Text: text, ReplaceOriginal: true, Blocks: []Block{section(text)}}
	case batches.ActionRegenerate, batches.ActionRefine:
		text := fmt.Sprintf(":arrows_counterclockwise: New template for %s posted below.", id)
		return Message{Text: text, ReplaceOriginal: true, Blocks: []Block{section(text)}}
	}
	return Message{Text: fmt.Sprintf("%s: %s done.", id, out.Action.Kind)}
}
