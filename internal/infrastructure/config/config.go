package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pkgkafka "github.com/bibbank/loanservicing/pkg/kafka"
	"github.com/bibbank/loanservicing/pkg/money"
	pkgpostgres "github.com/bibbank/loanservicing/pkg/postgres"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	// StatementTimeoutMS bounds each statement; zero keeps the server default.
	StatementTimeoutMS int
}

type KafkaConfig struct {
	Brokers       []string
	EventTopic    string
	CommandTopic  string
	ConsumerGroup string
	TLS           bool
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string
}

type TelemetryConfig struct {
	LogLevel     string
	LogFormat    string
	OTLPEndpoint string
	OTLPInsecure bool
	SampleRatio  float64
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type Config struct {
	GRPCPort       int
	HTTPPort       int
	GRPCReflection bool
	DB             DatabaseConfig
	Kafka          KafkaConfig
	Telemetry      TelemetryConfig
	TLS            TLSConfig
	RoundingMode   money.RoundingMode
	ServiceName    string
}

// Validate reports every problem with the loaded configuration at once.
func (c Config) Validate() error {
	var errs []error
	if c.DB.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD environment variable is required"))
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS must name at least one broker"))
	}
	if c.Kafka.EventTopic == "" {
		errs = append(errs, errors.New("KAFKA_EVENT_TOPIC must not be empty"))
	}
	if c.Kafka.CommandTopic != "" && c.Kafka.ConsumerGroup == "" {
		errs = append(errs, errors.New("KAFKA_CONSUMER_GROUP is required when KAFKA_COMMAND_TOPIC is set"))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	if c.GRPCPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("GRPC_PORT and HTTP_PORT must differ, both are %d", c.GRPCPort))
	}
	return errors.Join(errs...)
}

// Load reads the configuration from the environment. An unknown rounding
// mode is the only value that fails here; everything else is checked by
// Validate.
func Load() (Config, error) {
	rounding, err := money.ParseRoundingMode(getEnv("ROUNDING_MODE", "HALF_EVEN"))
	if err != nil {
		return Config{}, fmt.Errorf("config: ROUNDING_MODE: %w", err)
	}
	return Config{
		GRPCPort: getEnvInt("GRPC_PORT", 9087),
		HTTPPort: getEnvInt("HTTP_PORT", 8087),
		// Only enable reflection when GRPC_REFLECTION=true.
		GRPCReflection: getEnvBool("GRPC_REFLECTION", false),
		DB: DatabaseConfig{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "loanservicing"),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", "loanservicing"),
			SSLMode:            getEnv("DB_SSLMODE", "require"),
			MaxConns:           getEnvInt("DB_MAX_CONNS", 10),
			StatementTimeoutMS: getEnvInt("DB_STATEMENT_TIMEOUT_MS", 30000),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			EventTopic:    getEnv("KAFKA_EVENT_TOPIC", "loanservicing.events"),
			CommandTopic:  getEnv("KAFKA_COMMAND_TOPIC", ""),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "loan-servicing"),
			TLS:           getEnvBool("KAFKA_TLS", false),
			SASLMechanism: getEnv("KAFKA_SASL_MECHANISM", ""),
			SASLUsername:  getEnv("KAFKA_SASL_USERNAME", ""),
			SASLPassword:  getEnv("KAFKA_SASL_PASSWORD", ""),
		},
		Telemetry: TelemetryConfig{
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			LogFormat:    getEnv("LOG_FORMAT", "json"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio:  getEnvFloat("OTEL_TRACES_SAMPLER_RATIO", 1),
		},
		TLS: TLSConfig{
			CertFile: getEnv("TLS_CERT_FILE", ""),
			KeyFile:  getEnv("TLS_KEY_FILE", ""),
		},
		RoundingMode: rounding,
		ServiceName:  "loan-servicing",
	}, nil
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Postgres converts the database settings into pool parameters.
func (c Config) Postgres() pkgpostgres.Config {
	return pkgpostgres.Config{
		Host:             c.DB.Host,
		Port:             c.DB.Port,
		User:             c.DB.User,
		Password:         c.DB.Password,
		Database:         c.DB.Name,
		SSLMode:          c.DB.SSLMode,
		MaxConns:         int32(c.DB.MaxConns),
		ApplicationName:  c.ServiceName,
		StatementTimeout: time.Duration(c.DB.StatementTimeoutMS) * time.Millisecond,
	}
}

// KafkaClient converts the Kafka settings into client parameters.
func (c Config) KafkaClient() pkgkafka.Config {
	return pkgkafka.Config{
		Brokers:       c.Kafka.Brokers,
		ClientID:      c.ServiceName,
		ConsumerGroup: c.Kafka.ConsumerGroup,
		TLS:           c.Kafka.TLS,
		SASLEnabled:   c.Kafka.SASLMechanism != "",
		SASLMechanism: c.Kafka.SASLMechanism,
		SASLUsername:  c.Kafka.SASLUsername,
		SASLPassword:  c.Kafka.SASLPassword,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
