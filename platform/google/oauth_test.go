package google

import (
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

type testGoogleConfig struct {
	tokenPath string
}

func (c testGoogleConfig) GetGoogleClientID() string     { return "id" }
func (c testGoogleConfig) GetGoogleClientSecret() string { return "secret" }
func (c testGoogleConfig) GetGoogleTokenPath() string    { return c.tokenPath }
func (c testGoogleConfig) GetCompanyInfoDocID() string   { return "" }
func (c testGoogleConfig) IsGoogleEnabled() bool         { return true }

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Unix(1700000000, 0).UTC()}

	if err := SaveToken(path, want); err != nil {
		t.Fatalf("SaveToken returned error: %v", err)
	}
	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken returned error: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Fatalf("token mismatch: %+v", got)
	}
}

func TestTokenPathPrefersConfig(t *testing.T) {
	if got := TokenPath(testGoogleConfig{tokenPath: "/tmp/tok.json"}); got != "/tmp/tok.json" {
		t.Fatalf("expected configured path, got %q", got)
	}
	if got := TokenPath(testGoogleConfig{}); filepath.Base(got) != "google-token.json" {
		t.Fatalf("expected xdg default file name, got %q", got)
	}
}
