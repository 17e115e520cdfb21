package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bibbank/settlement/gateway/internal/config"
	"github.com/bibbank/settlement/gateway/internal/handler"
	"github.com/bibbank/settlement/gateway/internal/middleware"
	"github.com/bibbank/settlement/gateway/internal/proxy"
	"github.com/bibbank/settlement/pkg/observability"
	"github.com/bibbank/settlement/pkg/rest"
)

const serviceName = "gateway"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: serviceName,
	})

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting gateway",
		"port", cfg.HTTPPort,
		"payments_url", cfg.PaymentsURL,
		"orders_url", cfg.OrdersURL,
	)

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: serviceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    true,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer shutdownTracer(context.WithoutCancel(ctx))
	}

	metricsHandler, shutdownMetrics, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: serviceName,
	})
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer shutdownMetrics(context.WithoutCancel(ctx))

	client := proxy.NewClient(cfg.UpstreamTimeout)
	upstreams := handler.Upstreams{
		Payments: proxy.NewUpstream("payments-service", cfg.PaymentsURL, client, logger),
		Orders:   proxy.NewUpstream("orders-service", cfg.OrdersURL, client, logger),
	}

	// Routes.
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, upstreams, logger)
	mux.Handle("GET /metrics", metricsHandler)

	// Rate limiting sits inside the shared chain so rejected requests are
	// still logged and counted.
	limiter := middleware.NewPerClientRateLimiter(cfg.RateLimit, cfg.RateBurst)
	h := rest.Chain(mux,
		middleware.RequestID,
		middleware.PerClientRateLimitMiddleware(limiter),
	)

	server := rest.NewServer(cfg.HTTPPort, rest.NewHandler(serviceName, h, logger), logger)
	if err := server.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}
