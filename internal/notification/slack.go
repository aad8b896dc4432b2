// Package notification posts cadence activity and batch reviews to Slack.
//
// Everything here is best effort: an unconfigured webhook turns every post
// into a no-op, and delivery failures are returned to the caller to log,
// never to abort the work that triggered them.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"outreach_backend/platform/config"

	"github.com/sethvargo/go-retry"
)

const (
	infoPrefix  = ":information_source: "
	errorPrefix = ":warning: *Error:* "

	defaultSlackAPI = "https://slack.com/api"
	requestTimeout  = 10 * time.Second
	maxRetries      = 2
)

// Slack delivers messages through an incoming webhook, interaction response
// URLs and the Web API (for modals).
type Slack struct {
	webhookURL string
	botToken   string
	apiBase    string
	http       *http.Client
	backoff    func() retry.Backoff
}

// NewSlack builds the client. A nil httpClient gets a 10s timeout client.
func NewSlack(cfg config.SlackConfig, httpClient *http.Client) *Slack {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Slack{
		webhookURL: strings.TrimSpace(cfg.GetSlackWebhookURL()),
		botToken:   strings.TrimSpace(cfg.GetSlackBotToken()),
		apiBase:    defaultSlackAPI,
		http:       httpClient,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(maxRetries, retry.NewExponential(time.Second))
		},
	}
}

// WithAPIBase points Web API calls somewhere else. Tests use it.
func (s *Slack) WithAPIBase(base string) *Slack {
	s.apiBase = strings.TrimRight(base, "/")
	return s
}

// WithBackoff replaces the retry schedule.
func (s *Slack) WithBackoff(fn func() retry.Backoff) *Slack {
	s.backoff = fn
	return s
}

// Enabled reports whether a webhook is configured.
func (s *Slack) Enabled() bool {
	return s != nil && s.webhookURL != ""
}

// Post sends msg to the configured channel.
func (s *Slack) Post(ctx context.Context, msg Message) error {
	if !s.Enabled() {
		return nil
	}
	return s.postJSON(ctx, s.webhookURL, "", msg, nil)
}

// Info posts a plain informational line.
func (s *Slack) Info(ctx context.Context, text string) error {
	return s.Post(ctx, Message{Text: infoPrefix + text})
}

// Error posts an operator-visible failure line.
func (s *Slack) Error(ctx context.Context, text string) error {
	return s.Post(ctx, Message{Text: errorPrefix + text})
}

// Respond answers an interaction through its response URL.
func (s *Slack) Respond(ctx context.Context, responseURL string, msg Message) error {
	if s == nil || strings.TrimSpace(responseURL) == "" {
		return nil
	}
	return s.postJSON(ctx, responseURL, "", msg, nil)
}

// ErrNoBotToken is returned by Web API calls when no bot token is configured.
var ErrNoBotToken = errors.New("slack bot token not configured")

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// OpenView opens a modal for the interaction identified by triggerID.
func (s *Slack) OpenView(ctx context.Context, triggerID string, view View) error {
	if s == nil || s.botToken == "" {
		return ErrNoBotToken
	}
	body := map[string]any{"trigger_id": triggerID, "view": view}
	var resp apiResponse
	if err := s.postJSON(ctx, s.apiBase+"/views.open", s.botToken, body, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("slack views.open: %s", resp.Error)
	}
	return nil
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("slack returned %d: %s", e.status, e.body)
}

// postJSON retries network failures, 429 and 5xx. Other statuses fail at once.
func (s *Slack) postJSON(ctx context.Context, url, token string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := s.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return retry.RetryableError(&statusError{status: resp.StatusCode, body: string(data)})
		}
		if resp.StatusCode >= 300 {
			return &statusError{status: resp.StatusCode, body: string(data)}
		}
		if out != nil {
			return json.Unmarshal(data, out)
		}
		return nil
	})
}
