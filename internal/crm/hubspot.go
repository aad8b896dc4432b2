package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"outreach_backend/platform/config"

	"golang.org/x/time/rate"
)

const (
	defaultPageSize = 100
	// noteToContactAssociation is HubSpot's built-in note→contact type.
	noteToContactAssociation = 202
)

var contactProperties = []string{"email", "firstname", "lastname", "company", "interest", "lifecyclestage", PropertyLeadStatus}

// HubSpot implements Client over the CRM v3 REST API.
type HubSpot struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// New returns a HubSpot client, or Noop when no token is configured.
func New(cfg config.CRMConfig) Client {
	if !cfg.IsCRMEnabled() {
		return Noop{}
	}
	return NewHubSpot(cfg.GetHubSpotBaseURL(), cfg.GetHubSpotToken(), nil)
}

// NewHubSpot builds a client against baseURL. A nil httpClient gets a 15s timeout.
func NewHubSpot(baseURL, token string, httpClient *http.Client) *HubSpot {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://api.hubapi.com"
	}
	return &HubSpot{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  httpClient,
		// HubSpot private apps allow 100 requests per 10 seconds.
		limiter: rate.NewLimiter(rate.Limit(9), 10),
		now:     time.Now,
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubspot: status %d: %s", e.Status, e.Message)
}

type objectResponse struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type pageResponse struct {
	Results []objectResponse `json:"results"`
	Paging  *struct {
		Next *struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

func (h *HubSpot) UpsertContact(ctx context.Context, fields ContactFields) (string, error) {
	first, last := SplitName(fields.Name)
	props := map[string]string{
		"email":          strings.ToLower(strings.TrimSpace(fields.Email)),
		"firstname":      first,
		"lastname":       last,
		"lifecyclestage": "lead",
	}
	if fields.Phone != "" {
		props["phone"] = fields.Phone
	}
	if fields.Company != "" {
		props["company"] = fields.Company
	}
	if fields.Interest != "" {
		props["interest"] = fields.Interest
	}

	var created objectResponse
	err := h.do(ctx, http.MethodPost, "/crm/v3/objects/contacts", map[string]any{"properties": props}, &created)
	if err == nil {
		return created.ID, nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		return "", err
	}
	existing, findErr := h.FindByEmail(ctx, fields.Email)
	if findErr != nil {
		return "", ErrDuplicate
	}
	return existing.ID, ErrDuplicate
}

func (h *HubSpot) UpdateProperty(ctx context.Context, contactID, name, value string) error {
	body := map[string]any{"properties": map[string]string{name: value}}
	return h.do(ctx, http.MethodPatch, "/crm/v3/objects/contacts/"+url.PathEscape(contactID), body, nil)
}

func (h *HubSpot) ListContacts(ctx context.Context, pageSize int) ([]Contact, error) {
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}

	var out []Contact
	after := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("archived", "false")
		q.Set("properties", strings.Join(contactProperties, ","))
		if after != "" {
			q.Set("after", after)
		}

		var page pageResponse
		if err := h.do(ctx, http.MethodGet, "/crm/v3/objects/contacts?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		for _, r := range page.Results {
			out = append(out, toContact(r))
		}
		if page.Paging == nil || page.Paging.Next == nil || page.Paging.Next.After == "" {
			return out, nil
		}
		after = page.Paging.Next.After
	}
}

func (h *HubSpot) FindByEmail(ctx context.Context, email string) (Contact, error) {
	body := map[string]any{
		"filterGroups": []map[string]any{{
			"filters": []map[string]string{{
				"propertyName": "email",
				"operator":     "EQ",
				"value":        strings.ToLower(strings.TrimSpace(email)),
			}},
		}},
		"properties": contactProperties,
		"limit":      1,
	}
	var page pageResponse
	if err := h.do(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", body, &page); err != nil {
		return Contact{}, err
	}
	if len(page.Results) == 0 {
		return Contact{}, ErrNotFound
	}
	return toContact(page.Results[0]), nil
}

func (h *HubSpot) LogNote(ctx context.Context, contactID, text string) error {
	body := map[string]any{
		"properties": map[string]string{
			"hs_timestamp": strconv.FormatInt(h.now().UnixMilli(), 10),
			"hs_note_body": text,
		},
		"associations": []map[string]any{{
			"to": map[string]string{"id": contactID},
			"types": []map[string]any{{
				"associationCategory": "HUBSPOT_DEFINED",
				"associationTypeId":   noteToContactAssociation,
			}},
		}},
	}
	return h.do(ctx, http.MethodPost, "/crm/v3/objects/notes", body, nil)
}

func (h *HubSpot) do(ctx context.Context, method, path string, body, out any) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("hubspot: encode: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("hubspot: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("hubspot: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Message}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("hubspot: decode: %w", err)
	}
	return nil
}

func toContact(r objectResponse) Contact {
	p := r.Properties
	return Contact{
		ID:             r.ID,
		Email:          strings.ToLower(strings.TrimSpace(p["email"])),
		FirstName:      strings.TrimSpace(p["firstname"]),
		LastName:       strings.TrimSpace(p["lastname"]),
		Company:        strings.TrimSpace(p["company"]),
		Interest:       strings.TrimSpace(p["interest"]),
		LifecycleStage: p["lifecyclestage"],
		LeadStatus:     p[PropertyLeadStatus],
	}
}
