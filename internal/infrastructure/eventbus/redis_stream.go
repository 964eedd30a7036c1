package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/event"
)

// RedisStreamPublisher appends envelopes to a Redis stream, trimmed
// approximately to MaxLen entries when MaxLen > 0.
type RedisStreamPublisher struct {
	client *redis.Client
	Stream string
	MaxLen int64
}

func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, Stream: stream, MaxLen: maxLen}
}

func (p *RedisStreamPublisher) Name() string { return "redis" }

func (p *RedisStreamPublisher) Publish(ctx context.Context, events []event.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	pipe := p.client.Pipeline()
	for _, e := range events {
		args, err := streamArgs(p.Stream, p.MaxLen, e)
		if err != nil {
			return err
		}
		pipe.XAdd(ctx, args)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("xadd %s: %w", p.Stream, err)
	}
	return nil
}

func streamArgs(stream string, maxLen int64, e event.DomainEvent) (*redis.XAddArgs, error) {
	env, err := event.NewEnvelope(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.EventType(), err)
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.EventType(), err)
	}
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"event_type": env.EventType,
			"event":      string(body),
		},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return args, nil
}
