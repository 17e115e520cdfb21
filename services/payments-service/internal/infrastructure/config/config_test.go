package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PAYMENTS_DB_PASSWORD", "secret")

	cfg := Load()

	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, 5672, cfg.Rabbit.Port)
	assert.Equal(t, "topic", cfg.Rabbit.ExchangeKind)
	assert.Equal(t, time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.Equal(t, 10, cfg.InboxPrefetch)
	assert.False(t, cfg.Kafka.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PAYMENTS_DB_PASSWORD", "secret")
	t.Setenv("PAYMENTS_DB_HOST", "payments-db")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("INBOX_PREFETCH_COUNT", "3")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg := Load()

	assert.Equal(t, "payments-db", cfg.DB.Postgres().Host)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.PollInterval)
	assert.Equal(t, 3, cfg.InboxPrefetch)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "settlement.payment_results", cfg.Kafka.Mirror("payments").Topic("payment_results"))
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("D_SECONDS", "2")
	t.Setenv("D_GARBAGE", "soon")

	assert.Equal(t, 2*time.Second, getEnvDuration("D_SECONDS", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("D_GARBAGE", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("D_UNSET", time.Minute))
}

func TestValidate(t *testing.T) {
	t.Setenv("RABBIT_HOST", "")

	cfg := Load()
	cfg.DB.Password = ""
	cfg.Rabbit.Host = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYMENTS_DB_PASSWORD")
	assert.Contains(t, err.Error(), "RABBIT_HOST")
}
