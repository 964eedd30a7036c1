package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/event"
)

// RabbitPublisher puts event envelopes on a durable queue through the
// default exchange.
type RabbitPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Queue string
}

func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := DeclareQueue(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, Queue: queue}, nil
}

// DeclareQueue declares the durable events queue. Publisher and worker share
// it so both sides agree on the queue arguments.
func DeclareQueue(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("queue declare %s: %w", queue, err)
	}
	return nil
}

func (p *RabbitPublisher) Name() string { return "rabbitmq" }

func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *RabbitPublisher) Publish(ctx context.Context, events []event.DomainEvent) error {
	for _, e := range events {
		msg, err := rabbitMessage(e)
		if err != nil {
			return err
		}
		if err := p.ch.PublishWithContext(ctx,
			"",      // default exchange
			p.Queue, // routing key = queue
			false,   // mandatory
			false,   // immediate
			msg,
		); err != nil {
			return fmt.Errorf("publish %s: %w", e.EventType(), err)
		}
	}
	return nil
}

func rabbitMessage(e event.DomainEvent) (amqp.Publishing, error) {
	env, err := event.NewEnvelope(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s: %w", e.EventType(), err)
	}
	body, err := json.Marshal(env)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s: %w", e.EventType(), err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.EventID,
		Type:         env.EventType,
		Timestamp:    env.OccurredOn,
		Body:         body,
	}, nil
}
