package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"outreach_backend/internal/leads/domain"
	"outreach_backend/internal/oracle"
)

//go:embed templates/*.html
var templateFS embed.FS

// SamplePrefix marks the review draft so it is never mistaken for a real send.
const SamplePrefix = "[SAMPLE] "

const (
	defaultRecipientName    = "there"
	defaultRecipientCompany = "your company"
)

// Sender is the signature block of outgoing mail.
type Sender struct {
	Name           string
	Title          string
	Website        string
	UnsubscribeURL string
}

// Recipient holds the per-lead placeholder values.
type Recipient struct {
	Name    string
	Company string
}

// RecipientOf derives placeholder values from a lead, applying defaults.
func RecipientOf(lead domain.Lead) Recipient {
	r := Recipient{Name: strings.TrimSpace(lead.Name), Company: strings.TrimSpace(lead.Metadata.Company)}
	if r.Name == "" {
		r.Name = defaultRecipientName
	}
	if r.Company == "" {
		r.Company = defaultRecipientCompany
	}
	return r
}

func placeholderReplacer(r Recipient) *strings.Replacer {
	return strings.NewReplacer(
		"{{name}}", r.Name,
		"{name}", r.Name,
		"{{company}}", r.Company,
		"{company}", r.Company,
	)
}

// Fill substitutes {{name}}/{name} and {{company}}/{company} in text.
func Fill(text string, r Recipient) string {
	return placeholderReplacer(r).Replace(text)
}

// FillBundle applies Fill to every field of b.
func FillBundle(b oracle.Bundle, r Recipient) oracle.Bundle {
	rep := placeholderReplacer(r)
	return oracle.Bundle{
		Subject:          rep.Replace(b.Subject),
		PersonalizedHook: rep.Replace(b.PersonalizedHook),
		ValueProposition: rep.Replace(b.ValueProposition),
		CTAText:          rep.Replace(b.CTAText),
	}
}

type outreachData struct {
	Subject          string
	Name             string
	Hook             string
	ValueProposition string
	CTA              string
	SenderName       string
	SenderTitle      string
	SenderWebsite    string
	UnsubscribeURL   string
}

// Renderer turns a bundle into the outreach HTML body.
type Renderer struct {
	tmpl   *template.Template
	sender Sender
}

func NewRenderer(sender Sender) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/outreach.html")
	if err != nil {
		return nil, fmt.Errorf("parse outreach template: %w", err)
	}
	if sender.UnsubscribeURL == "" {
		sender.UnsubscribeURL = "#"
	}
	return &Renderer{tmpl: tmpl, sender: sender}, nil
}

// Render fills content for r and returns the final subject and HTML.
func (rd *Renderer) Render(content oracle.Bundle, r Recipient) (subject, html string, err error) {
	filled := FillBundle(content, r)
	data := outreachData{
		Subject:          filled.Subject,
		Name:             r.Name,
		Hook:             filled.PersonalizedHook,
		ValueProposition: filled.ValueProposition,
		CTA:              filled.CTAText,
		SenderName:       rd.sender.Name,
		SenderTitle:      rd.sender.Title,
		SenderWebsite:    rd.sender.Website,
		UnsubscribeURL:   rd.sender.UnsubscribeURL,
	}

	var buf bytes.Buffer
	if err := rd.tmpl.ExecuteTemplate(&buf, "outreach", data); err != nil {
		return "", "", fmt.Errorf("execute outreach template: %w", err)
	}
	return filled.Subject, buf.String(), nil
}
