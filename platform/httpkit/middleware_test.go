package httpkit

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type testSlackConfig struct{ secret string }

func (c testSlackConfig) GetSlackWebhookURL() string    { return "" }
func (c testSlackConfig) GetSlackSigningSecret() string { return c.secret }
func (c testSlackConfig) GetSlackBotToken() string      { return "" }

type testAdminConfig struct{ secret string }

func (c testAdminConfig) GetAdminJWTSecret() string { return c.secret }

const testSigningSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func init() {
	gin.SetMode(gin.TestMode)
}

func TestVerifySlackSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	body := []byte("payload=%7B%7D")
	sig := SignSlackRequest(testSigningSecret, ts, body)

	if !VerifySlackSignature(testSigningSecret, ts, sig, body, now) {
		t.Fatalf("expected valid signature")
	}
	if VerifySlackSignature(testSigningSecret, ts, sig, []byte("payload=tampered"), now) {
		t.Fatalf("expected tampered body to fail")
	}
	if VerifySlackSignature(testSigningSecret, ts, sig, body, now.Add(10*time.Minute)) {
		t.Fatalf("expected replayed request outside window to fail")
	}
}

func TestSlackSignatureRequiredRestoresBody(t *testing.T) {
	now := time.Unix(1700000000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	body := "payload=hello"

	engine := gin.New()
	engine.POST("/slack/actions", SlackSignatureRequired(testSlackConfig{secret: testSigningSecret}, func() time.Time { return now }), func(c *gin.Context) {
		c.String(http.StatusOK, c.PostForm("payload"))
	})

	req := httptest.NewRequest(http.MethodPost, "/slack/actions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", SignSlackRequest(testSigningSecret, ts, []byte(body)))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "hello" {
		t.Fatalf("expected handler to read restored body, got %d %q", rec.Code, rec.Body.String())
	}

	bad := httptest.NewRequest(http.MethodPost, "/slack/actions", strings.NewReader(body))
	bad.Header.Set("X-Slack-Request-Timestamp", ts)
	bad.Header.Set("X-Slack-Signature", "v0=deadbeef")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, bad)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d", rec.Code)
	}
}

func TestAdminRequired(t *testing.T) {
	cfg := testAdminConfig{secret: "operator-secret"}
	engine := gin.New()
	engine.GET("/admin", AdminRequired(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, MustGetIdentity(c).Subject())
	})

	token, err := IssueOperatorToken(cfg.secret, "ops@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueOperatorToken returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ops@example.com" {
		t.Fatalf("expected operator subject, got %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	other, _ := IssueOperatorToken("other-secret", "ops@example.com", time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign token, got %d", rec.Code)
	}
}
