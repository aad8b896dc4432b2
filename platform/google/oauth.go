// Package google builds authenticated clients for the Google APIs used by
// the mail transport and the company-info document source.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"outreach_backend/platform/config"

	"github.com/adrg/xdg"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// Scopes requested for the operator mailbox and reference documents.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/gmail.compose",
	"https://www.googleapis.com/auth/documents.readonly",
}

// NewOAuthConfig creates the OAuth2 config for Google APIs.
func NewOAuthConfig(cfg config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GetGoogleClientID(),
		ClientSecret: cfg.GetGoogleClientSecret(),
		RedirectURL:  "http://localhost:8080/oauth/callback",
		Scopes:       Scopes,
		Endpoint:     googleoauth.Endpoint,
	}
}

// TokenPath returns the configured token path or the XDG default.
func TokenPath(cfg config.GoogleConfig) string {
	if p := cfg.GetGoogleTokenPath(); p != "" {
		return p
	}
	return filepath.Join(xdg.DataHome, "outreach", "google-token.json")
}

// LoadToken reads a previously stored OAuth token.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &token, nil
}

// SaveToken writes token with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return nil
}

// persistingSource writes refreshed tokens back to disk so restarts keep working.
type persistingSource struct {
	base    oauth2.TokenSource
	path    string
	current string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.current {
		s.current = tok.AccessToken
		_ = SaveToken(s.path, tok)
	}
	return tok, nil
}

// HTTPClient returns an authenticated client. Missing credentials or a
// missing token file disable the Google integrations only.
func HTTPClient(ctx context.Context, cfg config.GoogleConfig) (*http.Client, error) {
	if !cfg.IsGoogleEnabled() {
		return nil, fmt.Errorf("google OAuth credentials not configured: set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")
	}

	path := TokenPath(cfg)
	token, err := LoadToken(path)
	if err != nil {
		return nil, err
	}

	oauthCfg := NewOAuthConfig(cfg)
	source := &persistingSource{
		base:    oauthCfg.TokenSource(ctx, token),
		path:    path,
		current: token.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, source)), nil
}
