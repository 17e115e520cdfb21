package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the API gateway.
type Config struct {
	HTTPPort        int
	PaymentsURL     string
	OrdersURL       string
	RateLimit       float64 // requests per second per client
	RateBurst       int
	UpstreamTimeout time.Duration
	OTLPEndpoint    string
	LogLevel        string
	LogFormat       string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() Config {
	_ = godotenv.Load()

	rps := getEnvFloat("RATE_LIMIT", 100)
	return Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 8080),
		PaymentsURL:     strings.TrimRight(getEnv("PAYMENTS_URL", "http://payments-service:8000"), "/"),
		OrdersURL:       strings.TrimRight(getEnv("ORDERS_URL", "http://orders-service:8000"), "/"),
		RateLimit:       rps,
		RateBurst:       getEnvInt("RATE_BURST", int(rps)),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}
}

// Validate checks that both upstreams are absolute URLs and the limits are usable.
func (c Config) Validate() error {
	var errs []error
	for name, raw := range map[string]string{"PAYMENTS_URL": c.PaymentsURL, "ORDERS_URL": c.OrdersURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", name, raw))
		}
	}
	if c.RateLimit <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT must be positive"))
	}
	if c.RateBurst <= 0 {
		errs = append(errs, errors.New("RATE_BURST must be positive"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("500ms") and bare seconds ("2").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
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
