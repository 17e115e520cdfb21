package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bibbank/settlement/pkg/backoff"
	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/pkg/events"
	kafkapkg "github.com/bibbank/settlement/pkg/kafka"
	"github.com/bibbank/settlement/pkg/observability"
	"github.com/bibbank/settlement/pkg/outbox"
	pgpkg "github.com/bibbank/settlement/pkg/postgres"
	"github.com/bibbank/settlement/pkg/rabbitmq"
	"github.com/bibbank/settlement/pkg/rest"
	"github.com/bibbank/settlement/services/orders-service/internal/application/usecase"
	"github.com/bibbank/settlement/services/orders-service/internal/infrastructure/config"
	infraPG "github.com/bibbank/settlement/services/orders-service/internal/infrastructure/postgres"
	"github.com/bibbank/settlement/services/orders-service/internal/presentation/messaging"
	restPresentation "github.com/bibbank/settlement/services/orders-service/internal/presentation/rest"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.Telemetry.ServiceName,
	})

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting orders-service", "http_port", cfg.HTTPPort)

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    true,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer shutdownTracer(context.WithoutCancel(ctx))
	}

	metricsHandler, shutdownMetrics, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer shutdownMetrics(context.WithoutCancel(ctx))

	// Initialize database.
	pool, err := pgpkg.NewPool(ctx, cfg.DB.Postgres(), backoff.Startup, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pgpkg.RunMigrations(cfg.DB.Postgres().DSN(), infraPG.Migrations, infraPG.MigrationsDir); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	broker, err := rabbitmq.Connect(ctx, cfg.Rabbit.AMQP("orders-service"), rabbitmq.Options{
		Topology:  contract.Topology(cfg.Rabbit.ExchangeKind),
		Startup:   backoff.Startup,
		Reconnect: backoff.Reconnect,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer broker.Close()

	var mirrors []events.Publisher
	if cfg.Kafka.Enabled() {
		producer, err := kafkapkg.NewProducer(cfg.Kafka.Mirror("orders-service"))
		if err != nil {
			logger.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		mirrors = append(mirrors, producer)
	}
	publisher := events.NewFanout(broker, logger, mirrors...)

	// Wire dependencies. The store moves orders to PENDING as the relay
	// marks their payment requests published.
	store := infraPG.NewOrderStore(pool, usecase.NewMarkOrderPending().Apply)

	consumer := messaging.NewPaymentResultConsumer(usecase.NewApplyPaymentResult(store), logger)

	relay := outbox.NewRelay(outbox.RelayConfig{
		Name:      "orders",
		Interval:  cfg.Outbox.PollInterval,
		BatchSize: cfg.Outbox.BatchSize,
	}, store.Outbox(), publisher, contract.RoutingKeyFor, logger)

	mux := http.NewServeMux()
	restPresentation.NewOrderHandler(
		usecase.NewCreateOrder(store),
		usecase.NewGetOrder(store),
		usecase.NewListOrders(store),
		logger,
	).RegisterRoutes(mux)

	rest.NewHealthHandler(cfg.Telemetry.ServiceName, logger).
		AddCheck("postgres", func(ctx context.Context) error { return pgpkg.HealthCheck(ctx, pool) }).
		AddCheck("rabbitmq", broker.Healthy).
		RegisterRoutes(mux)
	mux.Handle("GET /metrics", metricsHandler)

	httpServer := rest.NewServer(cfg.HTTPPort, rest.NewHandler(cfg.Telemetry.ServiceName, mux, logger), logger)

	errCh := make(chan error, 3)
	done := make(chan struct{}, 3)

	go func() {
		errCh <- httpServer.Start(ctx)
		done <- struct{}{}
	}()

	go func() {
		errCh <- relay.Run(ctx)
		done <- struct{}{}
	}()

	go func() {
		errCh <- broker.Consume(ctx, rabbitmq.ConsumerConfig{
			Queue:    contract.QueuePaymentResults,
			Tag:      "orders-service",
			Prefetch: cfg.ResultPrefetch,
		}, consumer.Handle)
		done <- struct{}{}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("worker stopped", "error", err)
		}
		cancel()
	}

	for range 3 {
		<-done
	}
	logger.Info("orders-service stopped")
}
