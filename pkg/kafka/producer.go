// Package kafka mirrors published events onto Kafka topics so downstream
// analytics can consume them without touching the settlement queues.
package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/bibbank/settlement/pkg/events"
)

// Header keys set on every mirrored message.
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
)

// Producer publishes events.Message values to Kafka. It implements
// events.Publisher.
type Producer struct {
	cfg    Config
	writer *kafkago.Writer
}

// NewProducer creates a new Producer with the given configuration.
func NewProducer(cfg Config) (*Producer, error) {
	transport := &kafkago.Transport{ClientID: cfg.ClientID}

	if cfg.TLS {
		transport.TLS = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	if cfg.SASLEnabled {
		mechanism, err := resolveSASL(cfg)
		if err != nil {
			return nil, err
		}
		transport.SASL = mechanism
	}

	return &Producer{
		cfg: cfg,
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(cfg.Brokers...),
			Balancer:               &kafkago.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafkago.RequireAll,
			AllowAutoTopicCreation: true,
			Transport:              transport,
		},
	}, nil
}

// Publish writes msg to the topic derived from routingKey, keyed by the
// aggregate id so events of one order stay in one partition.
func (p *Producer) Publish(ctx context.Context, routingKey string, msg events.Message) error {
	topic := p.cfg.Topic(routingKey)
	if err := p.writer.WriteMessages(ctx, toKafkaMessage(topic, msg)); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending writes and releases the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func toKafkaMessage(topic string, msg events.Message) kafkago.Message {
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(msg.AggregateID.String()),
		Value: msg.Body,
		Time:  msg.OccurredAt,
		Headers: []kafkago.Header{
			{Key: HeaderEventType, Value: []byte(msg.Type)},
			{Key: HeaderEventID, Value: []byte(msg.ID.String())},
		},
	}
}

// resolveSASL returns the SASL mechanism named in cfg.
func resolveSASL(cfg Config) (sasl.Mechanism, error) {
	switch cfg.SASLMechanism {
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.SASLUsername, cfg.SASLPassword)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.SASLUsername, cfg.SASLPassword)
	case "PLAIN", "":
		return plain.Mechanism{
			Username: cfg.SASLUsername,
			Password: cfg.SASLPassword,
		}, nil
	default:
		return nil, fmt.Errorf("kafka: unsupported SASL mechanism %q", cfg.SASLMechanism)
	}
}
