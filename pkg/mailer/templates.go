package mailer

import (
	"bytes"
	"fmt"
	htmpl "html/template"
	texttpl "text/template"
)

const (
	TemplateWelcome      = "welcome"
	TemplateEmailChanged = "email_changed"
	TemplateFarewell     = "farewell"
)

// TemplateData is what every user email template can reference.
type TemplateData struct {
	Name        string
	Email       string
	CompanyName string
}

// Message is a rendered email. Tag names the template it came from.
type Message struct {
	Tag     string
	Subject string
	Text    string
	HTML    string
}

type template struct {
	subject string
	text    string
	html    string
}

var templates = map[string]template{
	TemplateWelcome: {
		subject: "Welcome to {{.CompanyName}}",
		text:    "Hi{{with .Name}} {{.}}{{end}},\n\nyour account {{.Email}} has been created.\n\n{{.CompanyName}}\n",
		html:    `<p>Hi{{with .Name}} {{.}}{{end}},</p><p>your account <b>{{.Email}}</b> has been created.</p><p>{{.CompanyName}}</p>`,
	},
	TemplateEmailChanged: {
		subject: "Your {{.CompanyName}} email address changed",
		text:    "Hi{{with .Name}} {{.}}{{end}},\n\nyour account now uses {{.Email}}.\n\n{{.CompanyName}}\n",
		html:    `<p>Hi{{with .Name}} {{.}}{{end}},</p><p>your account now uses <b>{{.Email}}</b>.</p><p>{{.CompanyName}}</p>`,
	},
	TemplateFarewell: {
		subject: "Your {{.CompanyName}} account was deleted",
		text:    "Hi{{with .Name}} {{.}}{{end}},\n\nyour account {{.Email}} has been deleted.\n\n{{.CompanyName}}\n",
		html:    `<p>Hi{{with .Name}} {{.}}{{end}},</p><p>your account <b>{{.Email}}</b> has been deleted.</p><p>{{.CompanyName}}</p>`,
	},
}

// Render executes the named template. The HTML part is escaped.
func Render(name string, data TemplateData) (Message, error) {
	t, ok := templates[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown email template %q", name)
	}
	subject, err := execText(name+".subject", t.subject, data)
	if err != nil {
		return Message{}, err
	}
	text, err := execText(name+".text", t.text, data)
	if err != nil {
		return Message{}, err
	}
	h, err := htmpl.New(name + ".html").Parse(t.html)
	if err != nil {
		return Message{}, err
	}
	var buf bytes.Buffer
	if err := h.Execute(&buf, data); err != nil {
		return Message{}, err
	}
	return Message{Tag: name, Subject: subject, Text: text, HTML: buf.String()}, nil
}

func execText(name, src string, data TemplateData) (string, error) {
	t, err := texttpl.New(name).Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
