// Package mail sends outreach messages and searches the operator mailbox.
package mail

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
)

// Transport is the mail service the cadence depends on.
type Transport interface {
	// Send delivers a message and returns its id.
	Send(ctx context.Context, to, subject, html string) (string, error)
	// CreateDraft stores an unsent message and returns the draft id.
	CreateDraft(ctx context.Context, to, subject, html string) (string, error)
	DeleteDraft(ctx context.Context, draftID string) error
	// SearchMessages returns up to max messages matching query, newest first.
	SearchMessages(ctx context.Context, query string, max int64) ([]Message, error)
}

// Message is one message from the mailbox search.
type Message struct {
	ID       string
	ThreadID string
	From     string
	To       []string
	Subject  string
	SentAt   time.Time
	Snippet  string
	Body     string
	Labels   []string
}

// FromAddress reports whether the message was sent by email.
func (m Message) FromAddress(email string) bool {
	return addressOf(m.From) == strings.ToLower(strings.TrimSpace(email))
}

// Text returns the plain body, falling back to the snippet.
func (m Message) Text() string {
	if strings.TrimSpace(m.Body) != "" {
		return m.Body
	}
	return m.Snippet
}

func addressOf(header string) string {
	header = strings.TrimSpace(header)
	if addr, err := mail.ParseAddress(header); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(header)
}

// ThreadQuery matches every message exchanged with email. Unsent drafts
// are excluded so they never count as the latest message.
func ThreadQuery(email string) string {
	return "(from:" + email + " OR to:" + email + ") -in:drafts"
}

// SentQuery matches messages we sent to email.
func SentQuery(email string) string {
	return "to:" + email + " label:SENT"
}

// ErrDisabled is returned by Disabled for every call.
var ErrDisabled = errors.New("mail: google mailbox not configured")

// Disabled stands in for the mailbox when no Google token is available.
type Disabled struct{}

func (Disabled) Send(context.Context, string, string, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) CreateDraft(context.Context, string, string, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) DeleteDraft(context.Context, string) error { return ErrDisabled }

func (Disabled) SearchMessages(context.Context, string, int64) ([]Message, error) {
	return nil, ErrDisabled
}
