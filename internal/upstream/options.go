package upstream

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"drug-risk-service/internal/circuitbreaker"
	"drug-risk-service/internal/common/logging"
	"drug-risk-service/internal/common/utils"
	"drug-risk-service/internal/metrics"
)

// ClientConfig holds the knobs of the upstream client
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	MaxBodyBytes        int64
	Transport           http.RoundTripper
	Retry               utils.RetryConfig
	Limiter             *rate.Limiter
	Breaker             *circuitbreaker.GoBreakerAdapter
	Metrics             *metrics.Metrics
	Logger              logging.Logger
}

// DefaultClientConfig returns default upstream client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             8 * time.Second,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		MaxBodyBytes:        10 << 20,
		Retry:               utils.DefaultRetryConfig(),
	}
}

// ClientOption is a function that modifies ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout sets the fixed per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithTransport replaces the HTTP transport
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

// WithRetryAttempts sets how many times a GET is attempted on connection
// and timeout errors
func WithRetryAttempts(attempts int) ClientOption {
	return func(c *ClientConfig) {
		c.Retry.MaxAttempts = attempts
	}
}

// WithRateLimit caps outgoing requests to rps with the given burst.
// rps <= 0 leaves requests unlimited.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *ClientConfig) {
		if rps <= 0 {
			c.Limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCircuitBreaker guards every request with breaker
func WithCircuitBreaker(breaker *circuitbreaker.GoBreakerAdapter) ClientOption {
	return func(c *ClientConfig) {
		c.Breaker = breaker
	}
}

// WithMetrics records request outcomes and latency
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *ClientConfig) {
		c.Metrics = m
	}
}

// WithLogger sets the client logger
func WithLogger(logger logging.Logger) ClientOption {
	return func(c *ClientConfig) {
		c.Logger = logger
	}
}
