package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	data := TemplateData{Name: "Ana <script>", Email: "ana@example.com", CompanyName: "Acme"}

	msg, err := Render(TemplateWelcome, data)
	require.NoError(t, err)
	assert.Equal(t, TemplateWelcome, msg.Tag)
	assert.Equal(t, "Welcome to Acme", msg.Subject)
	assert.Contains(t, msg.Text, "Hi Ana <script>,")
	assert.Contains(t, msg.HTML, "Ana &lt;script&gt;")
	assert.Contains(t, msg.HTML, "<b>ana@example.com</b>")

	for _, name := range []string{TemplateEmailChanged, TemplateFarewell} {
		msg, err := Render(name, data)
		require.NoError(t, err, name)
		assert.Contains(t, msg.Subject, "Acme")
	}

	_, err = Render("nope", data)
	assert.Error(t, err)
}

func TestRenderWithoutName(t *testing.T) {
	msg, err := Render(TemplateEmailChanged, TemplateData{Email: "ana@example.com", CompanyName: "Acme"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg.Text, "Hi,\n"), msg.Text)
	assert.Contains(t, msg.HTML, "<p>Hi,</p>")
}

func TestMailgunRejectsEmptyRecipient(t *testing.T) {
	m := NewMailgun("mg.example.com", "key-test", "Acme <no-reply@example.com>")
	_, err := m.Send(context.Background(), "", Message{Subject: "hi", Text: "hi"})
	assert.Error(t, err)
}
