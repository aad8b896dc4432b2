// Package oracle asks the language model for outreach content and for
// classifications of observed mail.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"outreach_backend/internal/leads/domain"
	"outreach_backend/platform/sanitize"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// ReplyStatus is the fixed vocabulary for lead-originated replies.
type ReplyStatus string

const (
	ReplyReplied       ReplyStatus = "Replied"
	ReplyInterested    ReplyStatus = "Interested"
	ReplyNotInterested ReplyStatus = "Not Interested"
	ReplyMeetingBooked ReplyStatus = "Meeting Booked"
	ReplyOutOfOffice   ReplyStatus = "Out of Office"
	ReplyUnsubscribe   ReplyStatus = "Unsubscribe"
	ReplyWrongPerson   ReplyStatus = "Wrong Person"
	ReplyNoChange      ReplyStatus = "No Change"
)

var replyStatuses = []ReplyStatus{
	ReplyReplied, ReplyInterested, ReplyNotInterested, ReplyMeetingBooked,
	ReplyOutOfOffice, ReplyUnsubscribe, ReplyWrongPerson, ReplyNoChange,
}

// SentStatus classifies a message we sent.
type SentStatus string

const (
	SentNew                SentStatus = "New"
	SentAttemptedToContact SentStatus = "Attempted to Contact"
	SentConnected          SentStatus = "Connected"
	SentNoChange           SentStatus = "No Change"
)

var sentStatuses = []SentStatus{SentNew, SentAttemptedToContact, SentConnected}

// IntentFallback is stored when intent analysis fails.
var IntentFallback = domain.Intent{Score: 50, Intent: "Unknown (Error)", SuggestedAction: "manual_review"}

const (
	contentSystemPrompt    = "You are a helpful sales assistant AI."
	operationsSystemPrompt = "You are a sales operations assistant."
	maxClassifyInputRunes  = 4000
)

// Oracle generates content through a model.LLM.
type Oracle struct {
	llm     model.LLM
	info    *CompanyInfo
	company string
}

// New creates an oracle. company is the sender organisation named in prompts.
func New(llm model.LLM, info *CompanyInfo, company string) *Oracle {
	if strings.TrimSpace(company) == "" {
		company = "our company"
	}
	return &Oracle{llm: llm, info: info, company: company}
}

// CompanyInfo exposes the reference cache so callers can invalidate it.
func (o *Oracle) CompanyInfo() *CompanyInfo {
	return o.info
}

// GenerateGeneric writes a cohort template with {{name}} and {{company}}
// placeholders. feedback is optional operator guidance.
func (o *Oracle) GenerateGeneric(ctx context.Context, stage int, interest, feedback string) (Bundle, error) {
	prompt := genericPrompt(o.company, o.companyInfo(ctx), stage, interest, sanitize.Text(feedback))
	raw, err := o.complete(ctx, contentSystemPrompt, prompt, true)
	if err != nil {
		return Bundle{}, &GenerationError{Op: "generic", Err: err}
	}
	b, err := parseBundle(raw)
	if err != nil {
		return Bundle{}, &GenerationError{Op: "generic", Err: err}
	}
	return b, nil
}

// GeneratePersonalized writes content for one lead at stage.
func (o *Oracle) GeneratePersonalized(ctx context.Context, lead domain.Lead, stage int) (Bundle, error) {
	prompt := personalizedPrompt(o.company, o.companyInfo(ctx), lead, stage)
	raw, err := o.complete(ctx, contentSystemPrompt, prompt, true)
	if err != nil {
		return Bundle{}, &GenerationError{Op: "personalized", Err: err}
	}
	b, err := parseBundle(raw)
	if err != nil {
		return Bundle{}, &GenerationError{Op: "personalized", Err: err}
	}
	return b, nil
}

// ClassifyReply maps reply text onto the reply vocabulary. An unrecognised
// answer yields No Change. A model failure is returned so the reply can be
// classified again later.
func (o *Oracle) ClassifyReply(ctx context.Context, text string) (ReplyStatus, error) {
	prompt := replyPrompt(sanitize.Truncate(sanitize.Text(text), maxClassifyInputRunes))
	raw, err := o.complete(ctx, operationsSystemPrompt, prompt, false)
	if err != nil {
		return "", &GenerationError{Op: "classify_reply", Err: err}
	}
	return ParseReplyStatus(raw), nil
}

// ClassifySent maps a message we sent onto the sent vocabulary.
func (o *Oracle) ClassifySent(ctx context.Context, text string) (SentStatus, error) {
	prompt := sentPrompt(sanitize.Truncate(sanitize.Text(text), maxClassifyInputRunes))
	raw, err := o.complete(ctx, operationsSystemPrompt, prompt, false)
	if err != nil {
		return "", &GenerationError{Op: "classify_sent", Err: err}
	}
	return ParseSentStatus(raw), nil
}

// AnalyzeIntent scores a lead. The error is returned alongside
// IntentFallback so callers can log it and still store a result.
func (o *Oracle) AnalyzeIntent(ctx context.Context, lead domain.Lead, now time.Time) (domain.Intent, error) {
	fallback := IntentFallback
	at := now.UTC()
	fallback.AnalyzedAt = &at

	raw, err := o.complete(ctx, contentSystemPrompt, intentPrompt(lead), true)
	if err != nil {
		return fallback, &GenerationError{Op: "intent", Err: err}
	}
	var intent domain.Intent
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &intent); err != nil {
		return fallback, &GenerationError{Op: "intent", Err: err}
	}
	if intent.Score < 0 || intent.Score > 100 {
		return fallback, &GenerationError{Op: "intent", Err: fmt.Errorf("score %d out of range", intent.Score)}
	}
	intent.AnalyzedAt = &at
	return intent, nil
}

// ParseReplyStatus matches raw model output against the vocabulary,
// ignoring case, quotes and trailing punctuation.
func ParseReplyStatus(raw string) ReplyStatus {
	norm := normalizeLabel(raw)
	for _, s := range replyStatuses {
		if normalizeLabel(string(s)) == norm {
			return s
		}
	}
	return ReplyNoChange
}

// ParseSentStatus matches raw model output against the sent vocabulary.
func ParseSentStatus(raw string) SentStatus {
	norm := normalizeLabel(raw)
	for _, s := range sentStatuses {
		if normalizeLabel(string(s)) == norm {
			return s
		}
	}
	return SentNoChange
}

func normalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`.*")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (o *Oracle) companyInfo(ctx context.Context) string {
	if o.info == nil {
		return o.company + " is an AI automation agency."
	}
	return o.info.Text(ctx)
}

func (o *Oracle) complete(ctx context.Context, system, prompt string, jsonMode bool) (string, error) {
	if o.llm == nil {
		return "", errors.New("no language model configured")
	}
	temperature := float32(0.7)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       &temperature,
	}
	if jsonMode {
		cfg.ResponseMIMEType = "application/json"
	}
	req := &model.LLMRequest{
		Contents: []*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}}},
		Config:   cfg,
	}

	var b strings.Builder
	for resp, err := range o.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", err
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("empty response")
	}
	return out, nil
}
