package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Message is an event on its way to a broker.
type Message struct {
	ID          uuid.UUID
	Type        string
	AggregateID uuid.UUID
	OccurredAt  time.Time
	Body        []byte
}

// NewMessage marshals the payload of a domain event into a Message.
func NewMessage(evt DomainEvent) (Message, error) {
	body, err := json.Marshal(evt.Payload())
	if err != nil {
		return Message{}, fmt.Errorf("events: marshal %s payload: %w", evt.EventType(), err)
	}
	return Message{
		ID:          evt.EventID(),
		Type:        evt.EventType(),
		AggregateID: evt.AggregateID(),
		OccurredAt:  evt.OccurredAt(),
		Body:        body,
	}, nil
}

// Publisher publishes messages to a broker under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg Message) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, routingKey string, msg Message) error

func (f PublisherFunc) Publish(ctx context.Context, routingKey string, msg Message) error {
	return f(ctx, routingKey, msg)
}

// Fanout publishes to a primary publisher and mirrors every accepted message
// to secondary publishers. Only the primary decides success; mirror failures
// are logged and dropped so an optional sink never causes a republish.
type Fanout struct {
	primary Publisher
	mirrors []Publisher
	logger  *slog.Logger
}

// NewFanout returns a Fanout over primary and the given mirrors.
func NewFanout(primary Publisher, logger *slog.Logger, mirrors ...Publisher) *Fanout {
	return &Fanout{primary: primary, mirrors: mirrors, logger: logger}
}

// Publish implements Publisher.
func (f *Fanout) Publish(ctx context.Context, routingKey string, msg Message) error {
	if err := f.primary.Publish(ctx, routingKey, msg); err != nil {
		return err
	}
	for _, m := range f.mirrors {
		if err := m.Publish(ctx, routingKey, msg); err != nil {
			f.logger.Warn("mirror publish failed",
				"routing_key", routingKey,
				"event_id", msg.ID,
				"event_type", msg.Type,
				"error", err,
			)
		}
	}
	return nil
}
