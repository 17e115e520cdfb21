// Package outbox implements the transactional outbox: events are appended to
// a table in the same transaction as the state change they describe, and a
// Relay publishes them afterwards.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/pkg/events"
)

// Entry is one row of an outbox table.
type Entry struct {
	ID          uuid.UUID
	AggregateID uuid.UUID
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// FromEvent converts a domain event into an unpublished entry that keeps the
// event's identity.
func FromEvent(evt events.DomainEvent) (Entry, error) {
	msg, err := events.NewMessage(evt)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:          msg.ID,
		AggregateID: msg.AggregateID,
		EventType:   msg.Type,
		Payload:     msg.Body,
		CreatedAt:   msg.OccurredAt.UTC(),
	}, nil
}

// Published reports whether the entry has been marked as published.
func (e Entry) Published() bool {
	return e.PublishedAt != nil
}

// Message converts the entry into a broker message.
func (e Entry) Message() events.Message {
	return events.Message{
		ID:          e.ID,
		Type:        e.EventType,
		AggregateID: e.AggregateID,
		OccurredAt:  e.CreatedAt,
		Body:        e.Payload,
	}
}
