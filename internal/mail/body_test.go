package mail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/gmail/v1"
)

func TestHTMLToText(t *testing.T) {
	got := HTMLToText(`<html><head><style>p{}</style></head><body><p>Hi   there</p><div>Thanks,<br>Ada</div></body></html>`)

	assert.Equal(t, "Hi there\nThanks,\nAda", got)
}

func TestPayloadTextPrefersPlainPart(t *testing.T) {
	enc := base64.URLEncoding.EncodeToString
	part := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: enc([]byte("<p>html version</p>"))}},
			{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: enc([]byte("plain version\n"))}},
		},
	}

	assert.Equal(t, "plain version", payloadText(part))
}

func TestPayloadTextFallsBackToHTML(t *testing.T) {
	part := &gmail.MessagePart{
		MimeType: "text/html",
		Body:     &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("<p>Not now</p>"))},
	}

	assert.Equal(t, "Not now", payloadText(part))
}

func TestMessageOrigin(t *testing.T) {
	m := Message{From: "Ada Lovelace <ADA@example.com>", Snippet: "snippet"}

	assert.True(t, m.FromAddress("ada@example.com"))
	assert.False(t, m.FromAddress("me@acme.test"))
	assert.Equal(t, "snippet", m.Text())
}
