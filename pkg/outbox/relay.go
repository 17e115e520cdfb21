package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bibbank/settlement/pkg/events"
)

// ErrUnroutable is returned for an event type the router does not know.
var ErrUnroutable = errors.New("outbox: no routing key for event type")

// Marker marks claimed entries as published inside the claim transaction.
type Marker interface {
	MarkPublished(ctx context.Context, e Entry, at time.Time) error
}

// ClaimFunc receives a batch of unpublished entries in creation order.
type ClaimFunc func(ctx context.Context, entries []Entry, m Marker) error

// Claimer hands out batches of unpublished entries under a lock.
type Claimer interface {
	Claim(ctx context.Context, limit int, fn ClaimFunc) error
}

// Router maps an event type to the routing key it is published with.
type Router func(eventType string) (string, bool)

// RelayConfig configures a Relay.
type RelayConfig struct {
	// Name labels logs and metrics, e.g. "orders".
	Name      string
	Interval  time.Duration
	BatchSize int
}

// Relay periodically publishes unpublished outbox entries. Delivery is
// at-least-once: an entry is marked only after the broker accepted it, and an
// entry whose mark did not commit is published again on a later cycle.
type Relay struct {
	name      string
	interval  time.Duration
	batchSize int
	claimer   Claimer
	publisher events.Publisher
	route     Router
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewRelay creates a Relay.
func NewRelay(cfg RelayConfig, claimer Claimer, publisher events.Publisher, route Router, logger *slog.Logger) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Relay{
		name:      cfg.Name,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		claimer:   claimer,
		publisher: publisher,
		route:     route,
		logger:    logger.With("component", "outbox_relay", "relay", cfg.Name),
		tracer:    otel.Tracer("github.com/bibbank/settlement/pkg/outbox"),
		now:       time.Now,
	}
}

// Run publishes on every tick until ctx is cancelled. A full batch is
// followed immediately by another cycle instead of waiting for the tick.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay started", "interval", r.interval, "batch_size", r.batchSize)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		n, err := r.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.Warn("outbox cycle incomplete", "published", n, "error", err)
		}

		if err == nil && n == r.batchSize && ctx.Err() == nil {
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce runs a single cycle and returns how many entries were published.
// Publishing stops at the first failure so that a later event of the same
// aggregate never overtakes an earlier one; entries marked before the
// failure still commit.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		cycleDuration.WithLabelValues(r.name).Observe(time.Since(start).Seconds())
	}()

	published := 0
	var publishErr error

	err := r.claimer.Claim(ctx, r.batchSize, func(ctx context.Context, entries []Entry, m Marker) error {
		for _, e := range entries {
			if err := r.publish(ctx, e); err != nil {
				publishFailuresTotal.WithLabelValues(r.name).Inc()
				publishErr = err
				return nil
			}
			if err := m.MarkPublished(ctx, e, r.now().UTC()); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("outbox: claim batch: %w", err)
	}

	publishedTotal.WithLabelValues(r.name).Add(float64(published))
	if published > 0 {
		r.logger.Debug("outbox events published", "count", published)
	}
	return published, publishErr
}

func (r *Relay) publish(ctx context.Context, e Entry) error {
	key, ok := r.route(e.EventType)
	if !ok {
		return fmt.Errorf("%w %q (event %s)", ErrUnroutable, e.EventType, e.ID)
	}

	ctx, span := r.tracer.Start(ctx, "outbox.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", key),
			attribute.String("messaging.message.id", e.ID.String()),
			attribute.String("outbox.event_type", e.EventType),
			attribute.String("outbox.aggregate_id", e.AggregateID.String()),
		),
	)
	defer span.End()

	if err := r.publisher.Publish(ctx, key, e.Message()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return fmt.Errorf("outbox: publish %s %s: %w", e.EventType, e.ID, err)
	}
	return nil
}
