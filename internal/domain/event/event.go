// Package event defines the contract shared by all domain events and the
// envelope they travel in once they leave the process.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is an immutable record of something that happened to an
// aggregate.
type DomainEvent interface {
	EventID() string
	OccurredOn() time.Time
	EventType() string
	AggregateID() string
}

// Base carries the fields every event has. Concrete events embed it.
type Base struct {
	id          string
	occurredOn  time.Time
	eventType   string
	aggregateID string
}

func NewBase(eventType, aggregateID string) Base {
	return Base{
		id:          uuid.NewString(),
		occurredOn:  time.Now().UTC(),
		eventType:   eventType,
		aggregateID: aggregateID,
	}
}

func (b Base) EventID() string       { return b.id }
func (b Base) OccurredOn() time.Time { return b.occurredOn }
func (b Base) EventType() string     { return b.eventType }
func (b Base) AggregateID() string   { return b.aggregateID }

// Envelope is the wire form published to log, queue and stream sinks.
type Envelope struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredOn  time.Time       `json:"occurred_on"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope wraps e. The payload is the JSON encoding of the concrete event,
// so only exported fields (with json tags) travel.
func NewEnvelope(e DomainEvent) (Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:     e.EventID(),
		EventType:   e.EventType(),
		AggregateID: e.AggregateID(),
		OccurredOn:  e.OccurredOn(),
		Payload:     payload,
	}, nil
}
