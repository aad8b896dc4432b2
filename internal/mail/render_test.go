package mail

import (
	"strings"
	"testing"

	"outreach_backend/internal/leads/domain"
	"outreach_backend/internal/oracle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillReplacesBothPlaceholderStyles(t *testing.T) {
	r := Recipient{Name: "Ada", Company: "Engines Ltd"}

	got := Fill("Hi {{name}} / {name}, how is {company} ({{company}})?", r)

	assert.Equal(t, "Hi Ada / Ada, how is Engines Ltd (Engines Ltd)?", got)
}

func TestRecipientDefaults(t *testing.T) {
	r := RecipientOf(domain.Lead{Email: "x@example.com"})

	assert.Equal(t, "there", r.Name)
	assert.Equal(t, "your company", r.Company)
}

func TestRenderEscapesAndSigns(t *testing.T) {
	rd, err := NewRenderer(Sender{Name: "Sam", Title: "Founder", Website: "https://acme.test"})
	require.NoError(t, err)

	content := oracle.Bundle{
		Subject:          "Ideas for {{company}}",
		PersonalizedHook: "Saw {{company}} <script>x</script>",
		ValueProposition: "We automate intake.",
		CTAText:          "Worth a chat?",
	}
	lead := domain.Lead{Name: "Ada", Metadata: domain.Metadata{Company: "Engines"}}

	subject, html, err := rd.Render(content, RecipientOf(lead))
	require.NoError(t, err)

	assert.Equal(t, "Ideas for Engines", subject)
	assert.Contains(t, html, "Hi Ada,")
	assert.Contains(t, html, "Saw Engines &lt;script&gt;")
	assert.Contains(t, html, "Founder")
	assert.Contains(t, html, `href="https://acme.test"`)
	assert.Contains(t, html, `href="#"`)
	assert.False(t, strings.Contains(html, "{{"), "placeholders must be filled")
}
