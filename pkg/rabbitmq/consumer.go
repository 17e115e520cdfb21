package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bibbank/settlement/pkg/backoff"
)

// ErrReject marks a handler error as permanent: the delivery is dead-lettered
// instead of requeued.
var ErrReject = errors.New("rabbitmq: reject delivery")

// errSessionLost ends a consumer session that was delivering normally. The
// reconnect policy starts over after it instead of counting it as a failed
// attempt.
var errSessionLost = errors.New("rabbitmq: consumer session lost")

// Reject wraps err so the consumer dead-letters the delivery.
func Reject(err error) error {
	return fmt.Errorf("%w: %w", ErrReject, err)
}

// Delivery is the broker-independent view of a consumed message.
type Delivery struct {
	MessageID   string
	Type        string
	RoutingKey  string
	Headers     map[string]any
	Body        []byte
	Redelivered bool
}

// Handler processes one delivery. A nil error acks it, an error wrapped with
// Reject dead-letters it and any other error requeues it.
type Handler func(ctx context.Context, d Delivery) error

// ConsumerConfig configures a Consume loop.
type ConsumerConfig struct {
	Queue string
	Tag   string
	// Prefetch bounds unacknowledged deliveries on the channel.
	Prefetch int
	// RetryDelay is waited before a failed delivery is requeued.
	RetryDelay time.Duration
}

const (
	outcomeAck     = "ack"
	outcomeRequeue = "requeue"
	outcomeReject  = "reject"
)

// Consume delivers messages from cfg.Queue to h until ctx is cancelled,
// redialing under the Reconnect policy whenever the channel or connection
// is lost. Deliveries are handled one at a time in arrival order.
func (c *Client) Consume(ctx context.Context, cfg ConsumerConfig, h Handler) error {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	logger := c.logger.With("queue", cfg.Queue)
	notify := func(attempt int, err error, next time.Duration) {
		logger.Warn("consumer interrupted, reconnecting",
			"attempt", attempt,
			"retry_in", next,
			"error", err,
		)
	}

	lost := func(err error) {
		logger.Warn("consumer session lost, reconnecting", "error", err)
	}

	err := runSessions(ctx, c.opts.Reconnect, func(ctx context.Context) error {
		return c.consumeOnce(ctx, cfg, h)
	}, notify, lost)
	if ctx.Err() != nil {
		return nil
	}
	return unwrapPermanent(err)
}

// runSessions retries session under policy. A session that returns
// errSessionLost had been consuming, so the policy is restarted from its
// first attempt after InitialDelay rather than continuing to grow.
func runSessions(ctx context.Context, policy backoff.Policy, session func(ctx context.Context) error, notify backoff.Notify, lost func(error)) error {
	for {
		err := policy.Retry(ctx, session, notify)
		if !errors.Is(err, errSessionLost) || ctx.Err() != nil {
			return err
		}
		lost(err)
		sleep(ctx, policy.InitialDelay)
	}
}

func (c *Client) consumeOnce(ctx context.Context, cfg ConsumerConfig, h Handler) error {
	conn, err := c.connection(ctx)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("rabbitmq: set qos: %w", err)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	deliveries, err := ch.Consume(cfg.Queue, cfg.Tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume %s: %w", cfg.Queue, err)
	}

	c.logger.Info("consumer started", "queue", cfg.Queue, "prefetch", cfg.Prefetch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			if amqpErr == nil {
				return backoff.Permanent(fmt.Errorf("%w: channel closed", errSessionLost))
			}
			return backoff.Permanent(fmt.Errorf("%w: channel closed: %w", errSessionLost, amqpErr))
		case d, ok := <-deliveries:
			if !ok {
				return backoff.Permanent(fmt.Errorf("%w: delivery stream ended", errSessionLost))
			}
			c.handle(ctx, cfg, h, d)
		}
	}
}

// handle runs h on d and settles it. The handler context outlives ctx so an
// in-flight delivery finishes its transaction during shutdown.
func (c *Client) handle(ctx context.Context, cfg ConsumerConfig, h Handler, d amqp.Delivery) string {
	hctx := otel.GetTextMapPropagator().Extract(context.WithoutCancel(ctx), headerCarrier(d.Headers))
	hctx, span := c.tracer.Start(hctx, cfg.Queue+" process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(messagingAttrs(cfg.Queue, d.RoutingKey, d.MessageId)...),
	)
	defer span.End()

	err := h(hctx, Delivery{
		MessageID:   d.MessageId,
		Type:        d.Type,
		RoutingKey:  d.RoutingKey,
		Headers:     d.Headers,
		Body:        d.Body,
		Redelivered: d.Redelivered,
	})

	logger := c.logger.With("queue", cfg.Queue, "message_id", d.MessageId, "type", d.Type)

	var outcome string
	var settleErr error
	switch {
	case err == nil:
		outcome = outcomeAck
		settleErr = d.Ack(false)
	case errors.Is(err, ErrReject):
		spanError(span, err)
		outcome = outcomeReject
		logger.Error("delivery rejected", "error", err)
		settleErr = d.Nack(false, false)
	default:
		spanError(span, err)
		outcome = outcomeRequeue
		logger.Warn("delivery failed, requeueing", "error", err, "redelivered", d.Redelivered)
		sleep(ctx, cfg.RetryDelay)
		settleErr = d.Nack(false, true)
	}
	if settleErr != nil {
		logger.Error("failed to settle delivery", "outcome", outcome, "error", settleErr)
	}

	deliveriesTotal.WithLabelValues(cfg.Queue, outcome).Inc()
	return outcome
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
