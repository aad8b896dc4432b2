package oracle

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"outreach_backend/internal/leads/domain"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

type fakeLLM struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []*model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	var reply string
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	err := f.err
	f.mu.Unlock()

	return func(yield func(*model.LLMResponse, error) bool) {
		if err != nil {
			yield(nil, err)
			return
		}
		yield(&model.LLMResponse{Content: &genai.Content{Parts: []*genai.Part{{Text: reply}}}}, nil)
	}
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	req := f.requests[len(f.requests)-1]
	return req.Contents[0].Parts[0].Text
}

const validBundle = `{"subject":"Quick idea","personalized_hook":"Hi {{name}}, saw {{company}}.","value_proposition":"We automate lead handling.","cta_text":"Worth a chat?"}`

func TestGenerateGenericParsesFencedJSON(t *testing.T) {
	llm := &fakeLLM{replies: []string{"```json\n" + validBundle + "\n```"}}
	o := New(llm, NewCompanyInfo(nil, "Acme", 0), "Acme")

	b, err := o.GenerateGeneric(context.Background(), 1, "automation", "")
	if err != nil {
		t.Fatalf("GenerateGeneric returned error: %v", err)
	}
	if b.Subject != "Quick idea" || b.CTAText != "Worth a chat?" {
		t.Fatalf("unexpected bundle %+v", b)
	}
	prompt := llm.lastPrompt()
	if !strings.Contains(prompt, "Stage 1") || !strings.Contains(prompt, "automation") {
		t.Fatalf("prompt missing stage or interest: %s", prompt)
	}
	if !strings.Contains(prompt, "Acme is an AI automation agency.") {
		t.Fatalf("prompt missing fallback company info")
	}
	if strings.Contains(prompt, "IMPORTANT") {
		t.Fatalf("prompt must not carry a feedback block without feedback")
	}
	if llm.requests[0].Config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected JSON response mode")
	}
}

func TestGenerateGenericIncludesFeedback(t *testing.T) {
	llm := &fakeLLM{replies: []string{validBundle}}
	o := New(llm, nil, "Acme")

	if _, err := o.GenerateGeneric(context.Background(), 2, "general", "make it <b>shorter</b>"); err != nil {
		t.Fatalf("GenerateGeneric returned error: %v", err)
	}
	if !strings.Contains(llm.lastPrompt(), "'make it shorter'") {
		t.Fatalf("expected sanitized feedback in prompt: %s", llm.lastPrompt())
	}
}

func TestGenerateRejectsIncompleteBundle(t *testing.T) {
	cases := []string{
		"",
		"not json",
		`{"subject":"Hi","personalized_hook":"","value_proposition":"v","cta_text":"c"}`,
	}
	for _, raw := range cases {
		o := New(&fakeLLM{replies: []string{raw}}, nil, "Acme")
		_, err := o.GenerateGeneric(context.Background(), 1, "general", "")
		if !IsGenerationError(err) {
			t.Fatalf("reply %q: expected GenerationError, got %v", raw, err)
		}
	}
}

func TestGenerateWrapsModelFailure(t *testing.T) {
	o := New(&fakeLLM{err: errors.New("timeout")}, nil, "Acme")
	_, err := o.GeneratePersonalized(context.Background(), domain.Lead{Name: "Ada"}, 1)
	if !IsGenerationError(err) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestClassifyReplyNormalisesLabels(t *testing.T) {
	cases := map[string]ReplyStatus{
		`"Not Interested"`:   ReplyNotInterested,
		"meeting booked.":    ReplyMeetingBooked,
		"  Out of   Office ": ReplyOutOfOffice,
		"Maybe later?":       ReplyNoChange,
	}
	for raw, want := range cases {
		o := New(&fakeLLM{replies: []string{raw}}, nil, "Acme")
		got, err := o.ClassifyReply(context.Background(), "text")
		if err != nil || got != want {
			t.Fatalf("%q: expected %q, got %q (%v)", raw, want, got, err)
		}
	}
}

func TestClassifyReplyReturnsModelFailure(t *testing.T) {
	o := New(&fakeLLM{err: errors.New("down")}, nil, "Acme")
	got, err := o.ClassifyReply(context.Background(), "text")
	if !IsGenerationError(err) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if got != "" {
		t.Fatalf("failure must not produce a status, got %q", got)
	}
}

func TestClassifySent(t *testing.T) {
	o := New(&fakeLLM{replies: []string{"Attempted to Contact"}}, nil, "Acme")
	got, err := o.ClassifySent(context.Background(), "following up")
	if err != nil || got != SentAttemptedToContact {
		t.Fatalf("expected Attempted to Contact, got %q (%v)", got, err)
	}

	failing := New(&fakeLLM{err: errors.New("down")}, nil, "Acme")
	if _, err := failing.ClassifySent(context.Background(), "following up"); !IsGenerationError(err) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestAnalyzeIntentFallback(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	o := New(&fakeLLM{replies: []string{`{"score": 140}`}}, nil, "Acme")

	intent, err := o.AnalyzeIntent(context.Background(), domain.Lead{Name: "Ada"}, now)
	if err == nil {
		t.Fatalf("expected error for out-of-range score")
	}
	if intent.Score != 50 || intent.Intent != "Unknown (Error)" || intent.SuggestedAction != "manual_review" {
		t.Fatalf("expected fallback intent, got %+v", intent)
	}
	if intent.AnalyzedAt == nil || !intent.AnalyzedAt.Equal(now) {
		t.Fatalf("expected analyzed_at on fallback")
	}
}

func TestAnalyzeIntentParses(t *testing.T) {
	o := New(&fakeLLM{replies: []string{`{"score":82,"intent":"Ready to buy","suggested_action":"sequence_start","reasoning":"asked for pricing"}`}}, nil, "Acme")

	intent, err := o.AnalyzeIntent(context.Background(), domain.Lead{Name: "Ada", Message: "pricing?"}, time.Now())
	if err != nil {
		t.Fatalf("AnalyzeIntent returned error: %v", err)
	}
	if intent.Score != 82 || intent.SuggestedAction != "sequence_start" {
		t.Fatalf("unexpected intent %+v", intent)
	}
}
