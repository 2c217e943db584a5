package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Handler processes a consumed message. A returned error is retried with
// backoff; once retries are exhausted the consumer stops without committing
// the message, so it is redelivered when the group rebalances.
type Handler func(ctx context.Context, msg Message) error

// Consumer reads a topic as part of a consumer group.
type Consumer struct {
	reader  *kafkago.Reader
	handler Handler
	logger  *slog.Logger
	retries int
	backoff time.Duration
}

// NewConsumer creates a Consumer for topic.
func NewConsumer(cfg Config, topic string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if cfg.ConsumerGroup == "" {
		return nil, errors.New("kafka: consumer group is required")
	}
	dialer, err := cfg.dialer()
	if err != nil {
		return nil, err
	}
	readerCfg := kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    topic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10 * 1024 * 1024,
	}
	if dialer != nil {
		readerCfg.Dialer = dialer
	}
	return &Consumer{
		reader:  kafkago.NewReader(readerCfg),
		handler: handler,
		logger:  logger,
		retries: cfg.handlerRetries(),
		backoff: cfg.retryBackoff(),
	}, nil
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	cfg := c.reader.Config()
	c.logger.Info("consumer starting", "topic", cfg.Topic, "group", cfg.GroupID)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("consumer stopping", "topic", cfg.Topic)
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}

		attrs := []any{"topic", m.Topic, "partition", m.Partition, "offset", m.Offset}
		msg := fromKafkaMessage(m)
		err = withRetry(ctx, c.retries, c.backoff, func() error { return c.handler(ctx, msg) })
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "topic", cfg.Topic)
				return nil
			}
			c.logger.Error("handler failed, offset left uncommitted", append(attrs, "error", err)...)
			return fmt.Errorf("handling offset %d: %w", m.Offset, err)
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit error", append(attrs, "error", err)...)
		}
	}
}

// withRetry calls fn until it succeeds or retries are exhausted, sleeping
// backoff (doubled each time, plus jitter) between attempts.
func withRetry(ctx context.Context, retries int, backoff time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			wait := backoff << (attempt - 1)
			if half := int64(wait) / 2; half > 0 {
				wait += time.Duration(rand.Int64N(half))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("exhausted %d retries: %w", retries, lastErr)
}

func fromKafkaMessage(m kafkago.Message) Message {
	msg := Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// Close closes the reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("closing reader: %w", err)
	}
	return nil
}
