package events

// EventCollector is embedded in aggregates to collect domain events during state transitions.
type EventCollector struct {
	events []DomainEvent
}

// Record appends a domain event to the collector.
func (c *EventCollector) Record(event DomainEvent) {
	c.events = append(c.events, event)
}

// Events returns a copy of the collected domain events without clearing them.
// Aggregates are copied by value on every transition, so the slice must not
// be shared between copies.
func (c EventCollector) Events() []DomainEvent {
	out := make([]DomainEvent, len(c.events))
	copy(out, c.events)
	return out
}

// ClearEvents returns the collected domain events and clears the internal slice.
func (c *EventCollector) ClearEvents() []DomainEvent {
	collected := c.events
	c.events = nil
	return collected
}

// Fork returns an independent collector holding the same events. Immutable
// aggregates call it before recording on their new copy.
func (c EventCollector) Fork() EventCollector {
	return EventCollector{events: c.Events()}
}
