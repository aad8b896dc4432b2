package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
)

const gmailUser = "me"

// Gmail implements Transport over the Gmail API for the authorised mailbox.
type Gmail struct {
	svc      *gmail.Service
	fromName string
	fromAddr string
	limiter  *rate.Limiter
}

// NewGmail wraps svc. fromAddr may be empty, in which case Gmail fills the
// authorised account address.
func NewGmail(svc *gmail.Service, fromName, fromAddr string) *Gmail {
	return &Gmail{
		svc:      svc,
		fromName: fromName,
		fromAddr: fromAddr,
		limiter:  rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
	}
}

func (g *Gmail) Send(ctx context.Context, to, subject, html string) (string, error) {
	raw, err := g.encode(to, subject, html)
	if err != nil {
		return "", err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	sent, err := g.svc.Users.Messages.Send(gmailUser, &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gmail send: %w", err)
	}
	return sent.Id, nil
}

func (g *Gmail) CreateDraft(ctx context.Context, to, subject, html string) (string, error) {
	raw, err := g.encode(to, subject, html)
	if err != nil {
		return "", err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	draft, err := g.svc.Users.Drafts.Create(gmailUser, &gmail.Draft{Message: &gmail.Message{Raw: raw}}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gmail create draft: %w", err)
	}
	return draft.Id, nil
}

func (g *Gmail) DeleteDraft(ctx context.Context, draftID string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := g.svc.Users.Drafts.Delete(gmailUser, draftID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail delete draft: %w", err)
	}
	return nil
}

func (g *Gmail) SearchMessages(ctx context.Context, query string, max int64) ([]Message, error) {
	if max <= 0 {
		max = 1
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	list, err := g.svc.Users.Messages.List(gmailUser).Q(query).MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list: %w", err)
	}

	out := make([]Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		full, err := g.svc.Users.Messages.Get(gmailUser, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("gmail get %s: %w", ref.Id, err)
		}
		out = append(out, convertMessage(full))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out, nil
}

func (g *Gmail) encode(to, subject, html string) (string, error) {
	msg := gomail.NewMsg()
	if g.fromAddr != "" {
		if err := msg.FromFormat(g.fromName, g.fromAddr); err != nil {
			return "", fmt.Errorf("mail from: %w", err)
		}
	}
	if err := msg.To(to); err != nil {
		return "", fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("mail encode: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

func convertMessage(m *gmail.Message) Message {
	out := Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Snippet:  m.Snippet,
		Labels:   m.LabelIds,
		SentAt:   time.UnixMilli(m.InternalDate).UTC(),
	}
	if m.Payload == nil {
		return out
	}
	for _, h := range m.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			out.From = h.Value
		case "to":
			out.To = splitAddresses(h.Value)
		case "subject":
			out.Subject = h.Value
		}
	}
	out.Body = payloadText(m.Payload)
	return out
}

func splitAddresses(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if addr := addressOf(p); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
