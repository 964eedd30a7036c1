// Package eventbus delivers drained domain events to outbound sinks.
package eventbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/event"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/metrics"
)

// Publisher is a single sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, events []event.DomainEvent) error
}

// Multi fans events out to every sink. A failing sink does not stop the
// others; all failures are joined into the returned error.
type Multi struct {
	sinks   []Publisher
	metrics *metrics.Metrics
}

func NewMulti(m *metrics.Metrics, sinks ...Publisher) *Multi {
	return &Multi{sinks: sinks, metrics: m}
}

func (p *Multi) Name() string { return "multi" }

func (p *Multi) Sinks() []string {
	names := make([]string, 0, len(p.sinks))
	for _, s := range p.sinks {
		names = append(names, s.Name())
	}
	return names
}

func (p *Multi) Publish(ctx context.Context, events []event.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	var errs []error
	for _, s := range p.sinks {
		if err := s.Publish(ctx, events); err != nil {
			p.metrics.ObservePublishError(s.Name())
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		for _, e := range events {
			p.metrics.ObservePublished(s.Name(), e.EventType())
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes each event as a structured log line.
type LogPublisher struct {
	logger *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Publish(_ context.Context, events []event.DomainEvent) error {
	for _, e := range events {
		env, err := event.NewEnvelope(e)
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.EventType(), err)
		}
		p.logger.WithFields(logrus.Fields{
			"event_id":     env.EventID,
			"event_type":   env.EventType,
			"aggregate_id": env.AggregateID,
			"occurred_on":  env.OccurredOn,
			"payload":      string(env.Payload),
		}).Info("domain event")
	}
	return nil
}
