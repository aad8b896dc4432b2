package oracle

import (
	"context"
	"strings"
	"sync"
	"time"

	"outreach_backend/platform/sanitize"

	"golang.org/x/sync/singleflight"
	"google.golang.org/api/docs/v1"
)

const (
	companyInfoMaxRunes   = 2000
	defaultCompanyInfoTTL = 6 * time.Hour
)

// DocSource fetches the reference text describing our own company.
type DocSource interface {
	FetchText(ctx context.Context) (string, error)
}

// GoogleDoc reads a Google Doc's body as plain text.
type GoogleDoc struct {
	svc   *docs.Service
	docID string
}

func NewGoogleDoc(svc *docs.Service, docID string) *GoogleDoc {
	return &GoogleDoc{svc: svc, docID: docID}
}

func (g *GoogleDoc) FetchText(ctx context.Context) (string, error) {
	doc, err := g.svc.Documents.Get(g.docID).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return documentText(doc), nil
}

func documentText(doc *docs.Document) string {
	if doc == nil || doc.Body == nil {
		return ""
	}
	var b strings.Builder
	for _, el := range doc.Body.Content {
		if el.Paragraph == nil {
			continue
		}
		for _, pe := range el.Paragraph.Elements {
			if pe.TextRun != nil {
				b.WriteString(pe.TextRun.Content)
			}
		}
	}
	return b.String()
}

// CompanyInfo is a lazily loaded, TTL-bounded cache of the reference text.
// Concurrent loads collapse into one fetch. A failed or empty fetch yields
// the fallback text and is not cached.
type CompanyInfo struct {
	source   DocSource
	fallback string
	ttl      time.Duration
	now      func() time.Time

	group    singleflight.Group
	mu       sync.RWMutex
	text     string
	loadedAt time.Time
}

// NewCompanyInfo creates the cache. A nil source always yields the fallback,
// which is "{companyName} is an AI automation agency."
func NewCompanyInfo(source DocSource, companyName string, ttl time.Duration) *CompanyInfo {
	if ttl <= 0 {
		ttl = defaultCompanyInfoTTL
	}
	if strings.TrimSpace(companyName) == "" {
		companyName = "Our company"
	}
	return &CompanyInfo{
		source:   source,
		fallback: companyName + " is an AI automation agency.",
		ttl:      ttl,
		now:      time.Now,
	}
}

// Text returns the cached text, loading it when missing or expired.
func (c *CompanyInfo) Text(ctx context.Context) string {
	if text, ok := c.cached(); ok {
		return text
	}

	if c.source == nil {
		return c.fallback
	}

	v, _, _ := c.group.Do("company_info", func() (any, error) {
		if text, ok := c.cached(); ok {
			return text, nil
		}
		text, err := c.source.FetchText(ctx)
		text = strings.TrimSpace(text)
		if err != nil || text == "" {
			return c.fallback, nil
		}
		text = sanitize.Truncate(text, companyInfoMaxRunes)
		c.mu.Lock()
		c.text = text
		c.loadedAt = c.now()
		c.mu.Unlock()
		return text, nil
	})
	return v.(string)
}

func (c *CompanyInfo) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.text != "" && c.now().Sub(c.loadedAt) < c.ttl {
		return c.text, true
	}
	return "", false
}

// Invalidate drops the cached text so the next call refetches it.
func (c *CompanyInfo) Invalidate() {
	c.mu.Lock()
	c.text = ""
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}
