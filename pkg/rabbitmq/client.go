// Package rabbitmq wraps amqp091-go with the connection handling the
// settlement services need: startup retry, automatic redial, topology
// declaration on every new connection and confirmed publishing.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bibbank/settlement/pkg/backoff"
	"github.com/bibbank/settlement/pkg/events"
)

const tracerName = "github.com/bibbank/settlement/pkg/rabbitmq"

var (
	// ErrBrokerUnavailable is returned by Connect when the broker cannot be
	// reached within the startup policy.
	ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")
	// ErrClosed is returned after Close has been called.
	ErrClosed = errors.New("rabbitmq: client closed")
	// ErrNacked is returned when the broker refuses a published message.
	ErrNacked = errors.New("rabbitmq: publish not confirmed")
)

// Options configures a Client.
type Options struct {
	Topology Topology
	// Startup bounds the initial connection attempts.
	Startup backoff.Policy
	// Reconnect is used by consumers after the connection drops.
	Reconnect backoff.Policy
	Logger    *slog.Logger
}

// Client owns one AMQP connection shared by a publisher channel and any
// number of consumer channels.
type Client struct {
	cfg    Config
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer

	mu     sync.Mutex
	conn   *amqp.Connection
	pubCh  *amqp.Channel
	closed bool

	pubMu sync.Mutex
}

func newClient(cfg Config, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Startup == (backoff.Policy{}) {
		opts.Startup = backoff.Startup
	}
	if opts.Reconnect == (backoff.Policy{}) {
		opts.Reconnect = backoff.Reconnect
	}
	return &Client{
		cfg:    cfg,
		opts:   opts,
		logger: opts.Logger.With("component", "rabbitmq"),
		tracer: otel.Tracer(tracerName),
	}
}

// Connect dials the broker under opts.Startup, declares the topology and
// opens the confirm-mode publisher channel.
func Connect(ctx context.Context, cfg Config, opts Options) (*Client, error) {
	c := newClient(cfg, opts)

	notify := func(attempt int, err error, next time.Duration) {
		c.logger.Warn("broker not reachable, retrying",
			"url", cfg.Redacted(),
			"attempt", attempt,
			"retry_in", next,
			"error", err,
		)
	}

	err := c.opts.Startup.Retry(ctx, func(ctx context.Context) error {
		_, err := c.publishChannel(ctx)
		return err
	}, notify)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
	}

	c.logger.Info("connected to broker", "url", cfg.Redacted(), "exchange", opts.Topology.Exchange)
	return c, nil
}

// connection returns the live connection, dialing a new one if needed.
func (c *Client) connection(_ context.Context) (*amqp.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, backoff.Permanent(ErrClosed)
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn, nil
	}

	redial := c.conn != nil
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	if redial {
		reconnectsTotal.Inc()
		c.logger.Info("reconnected to broker")
	}
	c.conn = conn
	c.pubCh = nil
	return conn, nil
}

func (c *Client) dial() (*amqp.Connection, error) {
	name := c.cfg.ConnectionName
	if name == "" {
		name = "settlement"
	}

	conn, err := amqp.DialConfig(c.cfg.URL(), amqp.Config{
		Heartbeat:  10 * time.Second,
		Locale:     "en_US",
		Properties: amqp.Table{"connection_name": name},
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	defer ch.Close()

	if err := c.opts.Topology.Declare(ch); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (c *Client) publishChannel(ctx context.Context) (*amqp.Channel, error) {
	conn, err := c.connection(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pubCh != nil && !c.pubCh.IsClosed() {
		return c.pubCh, nil
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: open publisher channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}
	c.pubCh = ch
	return ch, nil
}

func (c *Client) dropPublishChannel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pubCh != nil {
		_ = c.pubCh.Close()
		c.pubCh = nil
	}
}

// Publish sends msg to the topology exchange and waits for the broker
// confirm. It makes a single attempt; callers own retries.
func (c *Client) Publish(ctx context.Context, routingKey string, msg events.Message) error {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	ch, err := c.publishChannel(ctx)
	if err != nil {
		return unwrapPermanent(err)
	}

	headers := amqp.Table{"aggregate_id": msg.AggregateID.String()}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(headers))

	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, c.opts.Topology.Exchange, routingKey, false, false, amqp.Publishing{
		MessageId:    msg.ID.String(),
		Type:         msg.Type,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.OccurredAt,
		Headers:      headers,
		Body:         msg.Body,
	})
	if err != nil {
		c.dropPublishChannel()
		return fmt.Errorf("rabbitmq: publish %s: %w", routingKey, err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		c.dropPublishChannel()
		return fmt.Errorf("rabbitmq: await confirm for %s: %w", routingKey, err)
	}
	if !acked {
		return fmt.Errorf("%w: %s %s", ErrNacked, routingKey, msg.ID)
	}

	publishedTotal.WithLabelValues(routingKey).Inc()
	return nil
}

// Healthy reports whether the client currently holds an open connection.
func (c *Client) Healthy(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq: not connected")
	}
	return nil
}

// Close shuts the connection down. Running consumers return ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.pubCh != nil {
		_ = c.pubCh.Close()
		c.pubCh = nil
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}

func unwrapPermanent(err error) error {
	if errors.Is(err, ErrClosed) {
		return ErrClosed
	}
	return err
}

func spanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func messagingAttrs(queue, routingKey, messageID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination.name", queue),
		attribute.String("messaging.rabbitmq.destination.routing_key", routingKey),
		attribute.String("messaging.message.id", messageID),
	}
}
