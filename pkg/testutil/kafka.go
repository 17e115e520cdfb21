package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkapkg "github.com/bibbank/settlement/pkg/kafka"
)

// KafkaContainer wraps a single-node Kafka broker used as the event mirror
// in tests.
type KafkaContainer struct {
	Container *kafka.KafkaContainer
	Brokers   []string
	// Config is a mirror config pointing at the container.
	Config kafkapkg.Config
}

// NewKafkaContainer starts a Kafka broker with topic auto-creation.
// The caller should defer container.Cleanup(t).
func NewKafkaContainer(ctx context.Context, t *testing.T) *KafkaContainer {
	t.Helper()

	container, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.6.1",
		kafka.WithClusterID("settlement-test"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}

	brokers, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("failed to get kafka brokers: %v", err)
	}

	return &KafkaContainer{
		Container: container,
		Brokers:   brokers,
		Config: kafkapkg.Config{
			Brokers:     brokers,
			ClientID:    "integration",
			TopicPrefix: "settlement.",
		},
	}
}

// Cleanup terminates the container.
func (kc *KafkaContainer) Cleanup(t *testing.T) {
	t.Helper()

	if kc.Container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := kc.Container.Terminate(ctx); err != nil {
		t.Logf("warning: failed to terminate kafka container: %v", err)
	}
}
