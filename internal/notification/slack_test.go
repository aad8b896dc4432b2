package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSlackConfig struct {
	webhook string
	token   string
}

func (c testSlackConfig) GetSlackWebhookURL() string    { return c.webhook }
func (c testSlackConfig) GetSlackSigningSecret() string { return "secret" }
func (c testSlackConfig) GetSlackBotToken() string      { return c.token }

func fastBackoff() retry.Backoff {
	return retry.WithMaxRetries(maxRetries, retry.NewConstant(time.Millisecond))
}

func newTestSlack(srv *httptest.Server, token string) *Slack {
	return NewSlack(testSlackConfig{webhook: srv.URL + "/hook", token: token}, srv.Client()).
		WithAPIBase(srv.URL + "/api").
		WithBackoff(fastBackoff)
}

func TestSlackDisabledIsSilent(t *testing.T) {
	s := NewSlack(testSlackConfig{}, nil)
	assert.False(t, s.Enabled())
	assert.NoError(t, s.Info(context.Background(), "hello"))
	assert.NoError(t, s.Respond(context.Background(), "", Message{Text: "x"}))
}

func TestSlackInfoAndErrorPrefixes(t *testing.T) {
	var got []Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg Message
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		got = append(got, msg)
	}))
	defer srv.Close()

	s := newTestSlack(srv, "")
	require.NoError(t, s.Info(context.Background(), "cycle started"))
	require.NoError(t, s.Error(context.Background(), "crm down"))

	require.Len(t, got, 2)
	assert.Equal(t, ":information_source: cycle started", got[0].Text)
	assert.Equal(t, ":warning: *Error:* crm down", got[1].Text)
}

func TestSlackRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newTestSlack(srv, "").Info(context.Background(), "x"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSlackGivesUpAfterThreeAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestSlack(srv, "").Info(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSlackDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no_service"))
	}))
	defer srv.Close()

	err := newTestSlack(srv, "").Info(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_service")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSlackOpenView(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/views.open", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-1", r.Header.Get("Authorization"))
		var body struct {
			TriggerID string `json:"trigger_id"`
			View      View   `json:"view"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "trig-1", body.TriggerID)
		assert.Equal(t, RefineCallbackID, body.View.CallbackID)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := newTestSlack(srv, "xoxb-1")
	require.NoError(t, s.OpenView(context.Background(), "trig-1", RefineModal(RefineMetadata{BatchID: "1_general", Version: 3})))
}

func TestSlackOpenViewReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"expired_trigger_id"}`))
	}))
	defer srv.Close()

	err := newTestSlack(srv, "xoxb-1").OpenView(context.Background(), "t", View{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired_trigger_id")

	assert.ErrorIs(t, NewSlack(testSlackConfig{}, nil).OpenView(context.Background(), "t", View{}), ErrNoBotToken)
}
