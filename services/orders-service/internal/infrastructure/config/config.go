package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bibbank/settlement/pkg/kafka"
	"github.com/bibbank/settlement/pkg/postgres"
	"github.com/bibbank/settlement/pkg/rabbitmq"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	HTTPPort  int
	DB        DBConfig
	Rabbit    RabbitConfig
	Outbox    OutboxConfig
	Kafka     KafkaConfig
	Telemetry TelemetryConfig
	LogLevel  string
	LogFormat string
	// ResultPrefetch bounds unacknowledged payment results per consumer.
	ResultPrefetch int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RabbitConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	VHost        string
	ExchangeKind string
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

type KafkaConfig struct {
	Brokers []string
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

// Postgres converts the database settings for pkg/postgres.
func (c DBConfig) Postgres() postgres.Config {
	return postgres.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Name,
		SSLMode:  c.SSLMode,
		MaxConns: c.MaxConns,
		MinConns: c.MinConns,
	}
}

// AMQP converts the broker settings for pkg/rabbitmq.
func (c RabbitConfig) AMQP(connectionName string) rabbitmq.Config {
	return rabbitmq.Config{
		Host:           c.Host,
		Port:           c.Port,
		User:           c.User,
		Password:       c.Password,
		VHost:          c.VHost,
		ConnectionName: connectionName,
	}
}

// Mirror converts the optional Kafka settings for pkg/kafka.
func (c KafkaConfig) Mirror(clientID string) kafka.Config {
	return kafka.Config{Brokers: c.Brokers, ClientID: clientID, TopicPrefix: "settlement."}
}

// Enabled reports whether a Kafka mirror is configured.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// Validate checks required configuration values.
func (c Config) Validate() error {
	var errs []error
	if c.DB.Password == "" {
		errs = append(errs, errors.New("ORDERS_DB_PASSWORD environment variable is required"))
	}
	if c.Rabbit.Host == "" {
		errs = append(errs, errors.New("RABBIT_HOST environment variable is required"))
	}
	if c.Outbox.BatchSize <= 0 {
		errs = append(errs, errors.New("OUTBOX_BATCH_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables with defaults. A .env
// file in the working directory is applied first when present; variables
// already set in the environment win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPPort: getEnvInt("HTTP_PORT", 8000),
		DB: DBConfig{
			Host:     getEnv("ORDERS_DB_HOST", "localhost"),
			Port:     getEnvInt("ORDERS_DB_PORT", 5432),
			User:     getEnv("ORDERS_DB_USER", "orders"),
			Password: getEnv("ORDERS_DB_PASSWORD", ""),
			Name:     getEnv("ORDERS_DB_NAME", "orders"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 20)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		Rabbit: RabbitConfig{
			Host:         getEnv("RABBIT_HOST", "localhost"),
			Port:         getEnvInt("RABBIT_PORT", rabbitmq.DefaultPort),
			User:         getEnv("RABBIT_USER", "guest"),
			Password:     getEnv("RABBIT_PASSWORD", "guest"),
			VHost:        getEnv("RABBIT_VHOST", "/"),
			ExchangeKind: getEnv("RABBIT_EXCHANGE_KIND", "topic"),
		},
		Outbox: OutboxConfig{
			PollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:    getEnvInt("OUTBOX_BATCH_SIZE", 100),
		},
		Kafka: KafkaConfig{
			Brokers: kafka.ParseBrokers(getEnv("KAFKA_BROKERS", "")),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  "orders-service",
		},
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		ResultPrefetch: getEnvInt("RESULT_CONSUMER_PREFETCH", 10),
	}
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("500ms") and bare seconds ("2").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultVal
}
