package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func newTestGmail(t *testing.T, handler http.HandlerFunc) *Gmail {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gmail.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewGmail(svc, "Sam", "sam@acme.test")
}

func TestGmailSendEncodesMIME(t *testing.T) {
	var raw string
	g := newTestGmail(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/users/me/messages/send") {
			var body gmail.Message
			_ = json.NewDecoder(r.Body).Decode(&body)
			raw = body.Raw
			_, _ = w.Write([]byte(`{"id":"m-1"}`))
			return
		}
		http.NotFound(w, r)
	})

	id, err := g.Send(context.Background(), "lead@example.com", "Hello", "<p>Hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)

	decoded, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "Subject: Hello")
	assert.Contains(t, string(decoded), "lead@example.com")
	assert.Contains(t, string(decoded), "text/html")
}

func TestGmailDraftLifecycle(t *testing.T) {
	var deleted string
	g := newTestGmail(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/users/me/drafts"):
			_, _ = w.Write([]byte(`{"id":"d-9"}`))
		case r.Method == http.MethodDelete && strings.Contains(r.URL.Path, "/users/me/drafts/"):
			deleted = r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	})

	id, err := g.CreateDraft(context.Background(), "lead@example.com", "[SAMPLE] Hello", "<p>Hi</p>")
	require.NoError(t, err)
	require.Equal(t, "d-9", id)
	require.NoError(t, g.DeleteDraft(context.Background(), id))
	assert.Equal(t, "d-9", deleted)
}

func TestGmailSearchNewestFirst(t *testing.T) {
	older := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	body := base64.URLEncoding.EncodeToString([]byte("Thanks, not now"))

	var query string
	g := newTestGmail(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/users/me/messages"):
			query = r.URL.Query().Get("q")
			_, _ = w.Write([]byte(`{"messages":[{"id":"a"},{"id":"b"}]}`))
		case strings.HasSuffix(r.URL.Path, "/users/me/messages/a"):
			_ = json.NewEncoder(w).Encode(gmail.Message{Id: "a", InternalDate: older.UnixMilli(), Snippet: "old"})
		case strings.HasSuffix(r.URL.Path, "/users/me/messages/b"):
			_ = json.NewEncoder(w).Encode(gmail.Message{
				Id:           "b",
				InternalDate: newer.UnixMilli(),
				Snippet:      "Thanks",
				Payload: &gmail.MessagePart{
					MimeType: "text/plain",
					Headers: []*gmail.MessagePartHeader{
						{Name: "From", Value: "Ada <ada@example.com>"},
						{Name: "To", Value: "Sam <sam@acme.test>"},
						{Name: "Subject", Value: "Re: Hello"},
					},
					Body: &gmail.MessagePartBody{Data: body},
				},
			})
		default:
			http.NotFound(w, r)
		}
	})

	msgs, err := g.SearchMessages(context.Background(), ThreadQuery("ada@example.com"), 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "(from:ada@example.com OR to:ada@example.com) -in:drafts", query)
	assert.Equal(t, "b", msgs[0].ID)
	assert.True(t, msgs[0].SentAt.Equal(newer))
	assert.True(t, msgs[0].FromAddress("ada@example.com"))
	assert.Equal(t, []string{"sam@acme.test"}, msgs[0].To)
	assert.Equal(t, "Thanks, not now", msgs[0].Text())
}

func TestDisabledTransportRefusesEveryCall(t *testing.T) {
	var tr Transport = Disabled{}
	ctx := context.Background()

	_, err := tr.Send(ctx, "lead@example.com", "s", "b")
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = tr.CreateDraft(ctx, "lead@example.com", "s", "b")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, tr.DeleteDraft(ctx, "d-1"), ErrDisabled)
	_, err = tr.SearchMessages(ctx, ThreadQuery("lead@example.com"), 5)
	assert.ErrorIs(t, err, ErrDisabled)
}
