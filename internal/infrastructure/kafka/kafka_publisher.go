package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bibbank/loanservicing/internal/domain/event"
	"github.com/bibbank/loanservicing/internal/domain/port"
	"github.com/bibbank/loanservicing/pkg/events"
	pkgkafka "github.com/bibbank/loanservicing/pkg/kafka"
)

// MessageProducer is the part of pkg/kafka.Producer the publisher needs.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// EventPublisher implements port.EventPublisher by writing loan events to a
// single topic keyed by loan ID.
type EventPublisher struct {
	producer MessageProducer
	topic    string
	logger   *slog.Logger
}

var _ port.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher creates a publisher writing to topic.
func NewEventPublisher(producer MessageProducer, topic string, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Publish serialises the events and sends them in one batch.
func (p *EventPublisher) Publish(ctx context.Context, evts ...event.DomainEvent) error {
	if len(evts) == 0 {
		return nil
	}

	messages := make([]pkgkafka.Message, 0, len(evts))
	for _, evt := range evts {
		env, err := events.NewEnvelope(evt)
		if err != nil {
			return err
		}
		p.logger.DebugContext(ctx, "publishing domain event",
			"event_type", env.EventType,
			"aggregate_id", env.AggregateID,
			"tenant_id", env.TenantID,
			"topic", p.topic,
			"payload_size", len(env.Payload),
		)
		messages = append(messages, pkgkafka.Message{
			Key:     []byte(env.AggregateID),
			Value:   env.Payload,
			Headers: env.Headers(),
		})
	}

	if err := p.producer.Publish(ctx, p.topic, messages...); err != nil {
		return fmt.Errorf("publish %d events to %s: %w", len(messages), p.topic, err)
	}
	return nil
}
