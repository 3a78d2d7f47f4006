// Package config provides configuration management for the drug risk service.
// It loads configuration from environment variables with sensible defaults
// and validates the result so the service refuses to start half-configured.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 4100)
//   - SERVICE_NAME: Name reported by /health (default: drug-risk-service)
//   - CORS_ORIGIN: Allowed CORS origin (default: *)
//   - METRICS_ENABLED: Mount the Prometheus /metrics endpoint (default: true)
//   - TLS_CERT_FILE / TLS_KEY_FILE: Optional TLS key pair
//   - LOG_LEVEL: Logging level (default: info)
//
// Upstream Catalog:
//   - UPSTREAM_BASE_URL: Base URL of the catalog API (default: http://localhost:5000/api)
//   - SERVICE_TOKEN: Bearer token used when the caller supplies none
//   - UPSTREAM_TIMEOUT: Per-request timeout (default: 8s)
//   - UPSTREAM_RETRY_ATTEMPTS: Attempts per upstream GET, 1 disables retry (default: 1)
//   - UPSTREAM_RATE_LIMIT: Client-side requests per second, 0 disables (default: 0)
//   - UPSTREAM_RATE_BURST: Burst for the client-side limit (default: 10)
//   - BREAKER_ENABLED: Guard upstream calls with a circuit breaker (default: true)
//
// Enrichment:
//   - RISK_CACHE_TTL_MS: Lifetime of trust and review cache entries in ms (default: 60000)
//   - RISK_CONCURRENCY: Maximum concurrent per-drug lookups (default: 6)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration values for the drug risk service.
//
// The configuration is loaded using the Load() function and should be
// validated using the Validate() method before use.
type Config struct {
	// Application settings
	Port           string `env:"PORT" validate:"port"`             // Server port number
	ServiceName    string `env:"SERVICE_NAME" validate:"required"` // Name reported by the health endpoint
	CORSOrigin     string `env:"CORS_ORIGIN"`                      // Allowed CORS origin
	MetricsEnabled bool   `env:"METRICS_ENABLED"`                  // Whether /metrics is mounted
	TLSCertFile    string `env:"TLS_CERT_FILE"`                    // Optional TLS certificate
	TLSKeyFile     string `env:"TLS_KEY_FILE"`                     // Optional TLS private key
	LogLevel       string `env:"LOG_LEVEL"`                        // Logging level (debug, info, warn, error)

	// Upstream catalog settings
	UpstreamBaseURL       string        `env:"UPSTREAM_BASE_URL" validate:"http_url"`    // Catalog API base URL
	ServiceToken          string        `env:"SERVICE_TOKEN"`                            // Fallback bearer credential
	UpstreamTimeout       time.Duration `env:"UPSTREAM_TIMEOUT" validate:"gt=0"`         // Fixed per-request timeout
	UpstreamRetryAttempts int           `env:"UPSTREAM_RETRY_ATTEMPTS" validate:"min=1"` // Attempts per upstream GET
	UpstreamRateLimit     float64       `env:"UPSTREAM_RATE_LIMIT" validate:"min=0"`     // Requests per second, 0 = unlimited
	UpstreamRateBurst     int           `env:"UPSTREAM_RATE_BURST"`                      // Token bucket burst
	BreakerEnabled        bool          `env:"BREAKER_ENABLED"`                          // Circuit breaker around upstream calls

	// Enrichment settings
	CacheTTL    time.Duration `env:"RISK_CACHE_TTL_MS" validate:"gt=0"` // Shared TTL for trust and review caches
	Concurrency int           `env:"RISK_CONCURRENCY" validate:"min=1"` // Fan-out concurrency limit

	// parse errors collected by Load and reported by Validate
	errs []string
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
//
// Values that fail to parse are replaced by their default and remembered;
// Validate reports them, so callers always see every bad variable at once.
func Load() *Config {
	c := &Config{
		Port:           getEnv("PORT", "4100"),
		ServiceName:    getEnv("SERVICE_NAME", "drug-risk-service"),
		CORSOrigin:     getEnv("CORS_ORIGIN", "*"),
		MetricsEnabled: getBoolEnv("METRICS_ENABLED", true),
		TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		UpstreamBaseURL: strings.TrimRight(getEnv("UPSTREAM_BASE_URL", "http://localhost:5000/api"), "/"),
		ServiceToken:    getEnv("SERVICE_TOKEN", ""),
		BreakerEnabled:  getBoolEnv("BREAKER_ENABLED", true),
	}

	c.UpstreamTimeout = c.getDurationEnv("UPSTREAM_TIMEOUT", 8*time.Second)
	c.UpstreamRetryAttempts = c.getIntEnv("UPSTREAM_RETRY_ATTEMPTS", 1)
	c.UpstreamRateLimit = c.getFloatEnv("UPSTREAM_RATE_LIMIT", 0)
	c.UpstreamRateBurst = c.getIntEnv("UPSTREAM_RATE_BURST", 10)
	c.CacheTTL = time.Duration(c.getIntEnv("RISK_CACHE_TTL_MS", 60000)) * time.Millisecond
	c.Concurrency = c.getIntEnv("RISK_CONCURRENCY", 6)

	return c
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a default value.
//
// This function accepts the representations understood by strconv.ParseBool;
// any other value returns defaultValue.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (c *Config) getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		c.errs = append(c.errs, fmt.Sprintf("%s must be an integer, got %q", key, value))
		return defaultValue
	}
	return parsed
}

func (c *Config) getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		c.errs = append(c.errs, fmt.Sprintf("%s must be a number, got %q", key, value))
		return defaultValue
	}
	return parsed
}

func (c *Config) getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		c.errs = append(c.errs, fmt.Sprintf("%s must be a valid duration (e.g., '8s', '500ms'), got %q", key, value))
		return defaultValue
	}
	return parsed
}

// Validate performs validation on the configuration to ensure all values
// are in range before the service starts.
//
// Field rules live in the validate struct tags and are checked with
// go-playground/validator; the cross-field rules (rate burst, TLS pair)
// are checked by hand afterwards. Parse errors recorded by Load win.
//
// Returns:
//   - error: A descriptive error if validation fails, nil if configuration is valid
func (c *Config) Validate() error {
	if len(c.errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(c.errs, "; "))
	}

	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return describe(fieldErrs[0])
		}
		return err
	}

	if c.UpstreamRateLimit > 0 && c.UpstreamRateBurst < 1 {
		return fmt.Errorf("UPSTREAM_RATE_BURST must be at least 1 when rate limiting is enabled")
	}

	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	return nil
}

// structValidator reports fields by their environment variable name
var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})

	_ = v.RegisterValidation("port", func(fl validator.FieldLevel) bool {
		port, err := strconv.Atoi(fl.Field().String())
		return err == nil && port >= 1 && port <= 65535
	})

	return v
}

func describe(fe validator.FieldError) error {
	switch fe.Tag() {
	case "port":
		return fmt.Errorf("%s must be a valid port number between 1 and 65535", fe.Field())
	case "http_url":
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", fe.Field(), fe.Value())
	case "gt":
		return fmt.Errorf("%s must be positive", fe.Field())
	case "min":
		if fe.Param() == "0" {
			return fmt.Errorf("%s must not be negative", fe.Field())
		}
		return fmt.Errorf("%s must be at least %s", fe.Field(), fe.Param())
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	default:
		return fmt.Errorf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
