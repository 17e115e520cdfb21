package testutil

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	rmq "github.com/bibbank/settlement/pkg/rabbitmq"
)

// RabbitMQContainer wraps a testcontainers RabbitMQ instance.
type RabbitMQContainer struct {
	Container *rabbitmq.RabbitMQContainer
	Config    rmq.Config
}

// NewRabbitMQContainer starts a RabbitMQ broker for testing.
// The caller should defer container.Cleanup(t).
func NewRabbitMQContainer(ctx context.Context, t *testing.T) *RabbitMQContainer {
	t.Helper()

	container, err := rabbitmq.Run(ctx,
		"rabbitmq:3.13-management-alpine",
		rabbitmq.WithAdminUsername("guest"),
		rabbitmq.WithAdminPassword("guest"),
	)
	if err != nil {
		t.Fatalf("failed to start rabbitmq container: %v", err)
	}

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("failed to get rabbitmq url: %v", err)
	}

	u, err := url.Parse(amqpURL)
	if err != nil {
		t.Fatalf("failed to parse rabbitmq url %s: %v", amqpURL, err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("unexpected rabbitmq port in %s: %v", amqpURL, err)
	}

	return &RabbitMQContainer{
		Container: container,
		Config: rmq.Config{
			Host:     u.Hostname(),
			Port:     port,
			User:     "guest",
			Password: "guest",
		},
	}
}

// Cleanup terminates the container.
func (rc *RabbitMQContainer) Cleanup(t *testing.T) {
	t.Helper()

	if rc.Container != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := rc.Container.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate rabbitmq container: %v", err)
		}
	}
}
