package events

// EventCollector buffers the events an aggregate raises until they are
// handed to a publisher. The zero value is ready to use.
type EventCollector struct {
	pending []DomainEvent
}

// Record queues events in the order they were raised.
func (c *EventCollector) Record(events ...DomainEvent) {
	c.pending = append(c.pending, events...)
}

// Events returns a copy of the queued events.
func (c *EventCollector) Events() []DomainEvent {
	if len(c.pending) == 0 {
		return nil
	}
	out := make([]DomainEvent, len(c.pending))
	copy(out, c.pending)
	return out
}

// Pending reports how many events are queued.
func (c *EventCollector) Pending() int { return len(c.pending) }

// ClearEvents drains the queue and returns what it held.
func (c *EventCollector) ClearEvents() []DomainEvent {
	drained := c.pending
	c.pending = nil
	return drained
}
