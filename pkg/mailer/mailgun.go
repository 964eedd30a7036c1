package mailer

import (
	"context"
	"errors"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Sender delivers one rendered message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, to string, msg Message) (string, error)
}

// Mailgun sends through the Mailgun HTTP API. The client is built once.
type Mailgun struct {
	Sender  string
	Timeout time.Duration

	client mg.Mailgun
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{
		Sender:  sender,
		Timeout: 10 * time.Second,
		client:  mg.NewMailgun(domain, apiKey),
	}
}

// Send delivers msg to a single recipient. The HTML part is optional; the
// template name, when set, is attached as a Mailgun tag.
func (m *Mailgun) Send(ctx context.Context, to string, msg Message) (string, error) {
	if to == "" {
		return "", errors.New("mailer: empty recipient")
	}
	out := m.client.NewMessage(m.Sender, msg.Subject, msg.Text, to)
	if msg.HTML != "" {
		out.SetHtml(msg.HTML)
	}
	if msg.Tag != "" {
		if err := out.AddTag(msg.Tag); err != nil {
			return "", err
		}
	}
	c, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	_, id, err := m.client.Send(c, out)
	return id, err
}

var _ Sender = (*Mailgun)(nil)
