// Package mailtest provides a recording mail.Transport for tests.
package mailtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"outreach_backend/internal/mail"
)

// Sent is one recorded send or draft.
type Sent struct {
	ID      string
	To      string
	Subject string
	HTML    string
}

// Transport records every call. Mailbox maps a query to its results.
type Transport struct {
	mu      sync.Mutex
	seq     int
	Sent    []Sent
	Drafts  map[string]Sent
	Deleted []string
	Mailbox map[string][]mail.Message
	Queries []string

	// FailSendTo makes Send fail for these recipients.
	FailSendTo map[string]bool
	// FailDraft makes CreateDraft fail.
	FailDraft error
	// FailSearch makes SearchMessages fail for these queries.
	FailSearch map[string]error
	// AfterSend runs after every recorded send.
	AfterSend func(to string)
}

var _ mail.Transport = (*Transport)(nil)

func New() *Transport {
	return &Transport{
		Drafts:  make(map[string]Sent),
		Mailbox: make(map[string][]mail.Message),
	}
}

func (t *Transport) Send(ctx context.Context, to, subject, html string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailSendTo[strings.ToLower(to)] {
		return "", fmt.Errorf("send to %s rejected", to)
	}
	t.seq++
	id := fmt.Sprintf("msg-%d", t.seq)
	t.Sent = append(t.Sent, Sent{ID: id, To: to, Subject: subject, HTML: html})
	if t.AfterSend != nil {
		t.AfterSend(to)
	}
	return id, nil
}

func (t *Transport) CreateDraft(_ context.Context, to, subject, html string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailDraft != nil {
		return "", t.FailDraft
	}
	t.seq++
	id := fmt.Sprintf("draft-%d", t.seq)
	t.Drafts[id] = Sent{ID: id, To: to, Subject: subject, HTML: html}
	return id, nil
}

func (t *Transport) DeleteDraft(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.Drafts[id]; !ok {
		return fmt.Errorf("draft %s not found", id)
	}
	delete(t.Drafts, id)
	t.Deleted = append(t.Deleted, id)
	return nil
}

func (t *Transport) SearchMessages(_ context.Context, query string, max int64) ([]mail.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Queries = append(t.Queries, query)
	if err := t.FailSearch[query]; err != nil {
		return nil, err
	}
	msgs := t.Mailbox[query]
	if max > 0 && int64(len(msgs)) > max {
		msgs = msgs[:max]
	}
	out := make([]mail.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// SentTo returns the sends addressed to email.
func (t *Transport) SentTo(email string) []Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Sent
	for _, s := range t.Sent {
		if strings.EqualFold(s.To, email) {
			out = append(out, s)
		}
	}
	return out
}

// DraftCount returns the number of live drafts.
func (t *Transport) DraftCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Drafts)
}
