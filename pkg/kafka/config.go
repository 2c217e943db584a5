package kafka

import (
	"crypto/tls"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// Config holds Kafka connection parameters shared by producers and consumers.
type Config struct {
	Brokers       []string
	ClientID      string
	ConsumerGroup string

	TLS bool

	// SASLMechanism is "PLAIN", "SCRAM-SHA-256" or "SCRAM-SHA-512".
	SASLEnabled   bool
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string

	// HandlerRetries is how many times a failed message is redelivered to
	// the handler before the consumer stops. Zero means 3.
	HandlerRetries int
	// RetryBackoff is the first delay between handler attempts; it doubles
	// on every retry. Zero means 200ms.
	RetryBackoff time.Duration
}

func (c Config) handlerRetries() int {
	if c.HandlerRetries <= 0 {
		return 3
	}
	return c.HandlerRetries
}

func (c Config) retryBackoff() time.Duration {
	if c.RetryBackoff <= 0 {
		return 200 * time.Millisecond
	}
	return c.RetryBackoff
}

func (c Config) tlsConfig() *tls.Config {
	if !c.TLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// mechanism resolves the configured SASL mechanism. It returns nil when SASL
// is disabled.
func (c Config) mechanism() (sasl.Mechanism, error) {
	if !c.SASLEnabled {
		return nil, nil
	}
	switch c.SASLMechanism {
	case "PLAIN", "":
		return plain.Mechanism{Username: c.SASLUsername, Password: c.SASLPassword}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, c.SASLUsername, c.SASLPassword)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, c.SASLUsername, c.SASLPassword)
	}
	return nil, fmt.Errorf("kafka: unsupported SASL mechanism %q", c.SASLMechanism)
}

// transport builds the writer transport; nil means the kafka-go default.
func (c Config) transport() (*kafkago.Transport, error) {
	mech, err := c.mechanism()
	if err != nil {
		return nil, err
	}
	if mech == nil && !c.TLS && c.ClientID == "" {
		return nil, nil
	}
	return &kafkago.Transport{
		ClientID:    c.ClientID,
		TLS:         c.tlsConfig(),
		SASL:        mech,
		DialTimeout: 10 * time.Second,
	}, nil
}

// dialer builds the reader dialer; nil means the kafka-go default.
func (c Config) dialer() (*kafkago.Dialer, error) {
	mech, err := c.mechanism()
	if err != nil {
		return nil, err
	}
	if mech == nil && !c.TLS && c.ClientID == "" {
		return nil, nil
	}
	return &kafkago.Dialer{
		ClientID:      c.ClientID,
		Timeout:       10 * time.Second,
		DualStack:     true,
		TLS:           c.tlsConfig(),
		SASLMechanism: mech,
	}, nil
}
