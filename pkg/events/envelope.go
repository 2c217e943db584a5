package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the serialised form of a domain event as it travels over the
// broker: routing metadata plus the JSON payload.
type Envelope struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	TenantID      string
	Payload       []byte
	OccurredAt    time.Time
}

// NewEnvelope marshals event into an Envelope.
func NewEnvelope(event DomainEvent) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s: %w", event.EventType(), err)
	}
	return Envelope{
		ID:            event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		EventType:     event.EventType(),
		TenantID:      event.TenantID(),
		Payload:       payload,
		OccurredAt:    event.OccurredAt(),
	}, nil
}

// Headers returns the envelope metadata as broker headers.
func (e Envelope) Headers() map[string]string {
	return map[string]string{
		"event_id":       e.ID,
		"event_type":     e.EventType,
		"aggregate_type": e.AggregateType,
		"tenant_id":      e.TenantID,
		"occurred_at":    e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}
