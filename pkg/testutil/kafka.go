package testutil

import (
	"context"
	"net"
	"strconv"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	pkgkafka "github.com/bibbank/loanservicing/pkg/kafka"
)

// Broker is a single-node Kafka for integration tests.
type Broker struct {
	Addrs []string
}

// NewBroker starts Kafka in a container and terminates it when t finishes.
func NewBroker(ctx context.Context, t *testing.T) *Broker {
	t.Helper()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.6.1",
		tckafka.WithClusterID("loanservicing-test"),
	)
	if err != nil {
		t.Fatalf("start kafka container: %v", err)
	}
	t.Cleanup(func() { terminate(t, container) })

	addrs, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("kafka brokers: %v", err)
	}
	return &Broker{Addrs: addrs}
}

// Config returns client settings for the broker with the given consumer group.
// Handler retries are kept short so failing handlers stop the consumer quickly.
func (b *Broker) Config(group string) pkgkafka.Config {
	return pkgkafka.Config{
		Brokers:        b.Addrs,
		ClientID:       "loan-servicing-test",
		ConsumerGroup:  group,
		HandlerRetries: 1,
	}
}

// CreateTopic creates a single-partition topic through the cluster controller.
func (b *Broker) CreateTopic(t *testing.T, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", b.Addrs[0])
	if err != nil {
		t.Fatalf("dial kafka: %v", err)
	}
	defer func() { _ = conn.Close() }()

	controller, err := conn.Controller()
	if err != nil {
		t.Fatalf("kafka controller: %v", err)
	}
	cconn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		t.Fatalf("dial kafka controller: %v", err)
	}
	defer func() { _ = cconn.Close() }()

	if err := cconn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}); err != nil {
		t.Fatalf("create topic %s: %v", topic, err)
	}
}
