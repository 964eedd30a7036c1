// Package notification turns published user events into emails.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/event"
	"github.com/oksasatya/go-ddd-user-management/pkg/mailer"
)

// ErrMalformed marks messages that will never succeed; they are dropped
// rather than requeued.
var ErrMalformed = errors.New("malformed event")

const sendTimeout = 15 * time.Second

type Notifier struct {
	Sender  mailer.Sender
	Company string
	Logger  *logrus.Logger
}

func NewNotifier(sender mailer.Sender, company string, logger *logrus.Logger) *Notifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Notifier{Sender: sender, Company: company, Logger: logger}
}

// Handle sends the email an event calls for, if any. Events without a
// matching email are ignored.
func (n *Notifier) Handle(ctx context.Context, env event.Envelope) error {
	var (
		tpl  string
		data = mailer.TemplateData{CompanyName: n.Company}
	)
	switch env.EventType {
	case entity.EventUserCreated:
		var p entity.UserCreated
		if err := decode(env, &p); err != nil {
			return err
		}
		tpl, data.Name, data.Email = mailer.TemplateWelcome, p.Name, p.Email
	case entity.EventUserEmailUpdated:
		var p entity.UserEmailUpdated
		if err := decode(env, &p); err != nil {
			return err
		}
		tpl, data.Name, data.Email = mailer.TemplateEmailChanged, p.Name, p.NewEmail
	case entity.EventUserDeleted:
		var p entity.UserDeleted
		if err := decode(env, &p); err != nil {
			return err
		}
		tpl, data.Name, data.Email = mailer.TemplateFarewell, p.Name, p.Email
	default:
		n.Logger.WithField("event_type", env.EventType).Debug("no notification for event")
		return nil
	}
	if data.Email == "" {
		return fmt.Errorf("%w: %s without recipient", ErrMalformed, env.EventType)
	}

	msg, err := mailer.Render(tpl, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	id, err := n.Sender.Send(c, data.Email, msg)
	if err != nil {
		return fmt.Errorf("send %s: %w", tpl, err)
	}
	n.Logger.WithFields(logrus.Fields{
		"event_id":     env.EventID,
		"aggregate_id": env.AggregateID,
		"template":     tpl,
		"message_id":   id,
	}).Info("notification sent")
	return nil
}

// Deliver handles one queue message and settles it: ack on success, drop on
// malformed input, requeue on delivery failure.
func (n *Notifier) Deliver(ctx context.Context, d amqp.Delivery) {
	var env event.Envelope
	err := json.Unmarshal(d.Body, &env)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrMalformed, err)
	} else {
		err = n.Handle(ctx, env)
	}

	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrMalformed):
		n.Logger.WithError(err).WithField("message_id", d.MessageId).Warn("dropping message")
		_ = d.Nack(false, false)
	default:
		n.Logger.WithError(err).WithField("message_id", d.MessageId).Error("notification failed, requeueing")
		_ = d.Nack(false, true)
	}
}

func decode(env event.Envelope, dst any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrMalformed, env.EventType)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
