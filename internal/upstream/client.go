// Package upstream is the HTTP client for the catalog service the risk
// service enriches. Every endpoint answers {success, data, message}; the
// client turns transport problems, non-2xx statuses and success=false into
// typed *errors.AppError values and leaves interpretation of data to callers.
package upstream

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"drug-risk-service/internal/circuitbreaker"
	"drug-risk-service/internal/common/errors"
	"drug-risk-service/internal/common/logging"
	"drug-risk-service/internal/common/utils"
	"drug-risk-service/internal/models"
)

// Endpoint names used in logs and metric labels
const (
	EndpointDrugs   = "drugs"
	EndpointQrScans = "qr_scans"
	EndpointTrust   = "trust"
	EndpointReviews = "reviews"
)

// Client talks to the upstream catalog
type Client struct {
	baseURL string
	http    *http.Client
	config  ClientConfig
	logger  logging.Logger
}

// NewClient creates a client bound to baseURL, e.g. http://catalog:5000/api
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	cfg := DefaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.ConfigError(fmt.Sprintf("invalid upstream base URL %q", baseURL))
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = isRetryable
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		config:  cfg,
		logger:  logger.WithFields(logging.Component("upstream")),
	}, nil
}

// BaseURL returns the catalog base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListDrugs fetches a page of drug records. query is forwarded verbatim.
func (c *Client) ListDrugs(ctx context.Context, token string, query url.Values) (*models.Envelope, error) {
	return c.get(ctx, EndpointDrugs, "/drugs", query, token)
}

// QrScanStats fetches the QR scan statistics report
func (c *Client) QrScanStats(ctx context.Context, token string) (*models.Envelope, error) {
	return c.get(ctx, EndpointQrScans, "/reports/module/qr-scans", nil, token)
}

// TrustScore fetches the trust rating of one manufacturer
func (c *Client) TrustScore(ctx context.Context, token, manufacturerID string) (*models.Envelope, error) {
	return c.get(ctx, EndpointTrust, "/trust-scores/"+url.PathEscape(manufacturerID), nil, token)
}

// ReviewStats fetches the review statistics of one drug
func (c *Client) ReviewStats(ctx context.Context, token, drugID string) (*models.Envelope, error) {
	return c.get(ctx, EndpointReviews, "/reviews/stats/drug/"+url.PathEscape(drugID), nil, token)
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, token string) (*models.Envelope, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var env *models.Envelope
	err := utils.RetryWithBackoff(ctx, c.config.Retry, func() error {
		if c.config.Limiter != nil {
			if err := c.config.Limiter.Wait(ctx); err != nil {
				return errors.RateLimitError(endpoint, err)
			}
		}

		attempt := func() error {
			var err error
			env, err = c.do(ctx, endpoint, target, token)
			return err
		}
		if c.config.Breaker != nil {
			return c.config.Breaker.Execute(ctx, attempt)
		}
		return attempt()
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (c *Client) do(ctx context.Context, endpoint, target, token string) (*models.Envelope, error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		c.config.Metrics.ObserveUpstream(endpoint, outcome, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.InternalError("failed to create upstream request", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			outcome = "timeout"
			return nil, errors.TimeoutError(endpoint+" request", err)
		}
		return nil, errors.ConnectionError(endpoint+" request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			outcome = "timeout"
			return nil, errors.TimeoutError(endpoint+" response", err)
		}
		return nil, errors.ConnectionError("failed to read "+endpoint+" response", err)
	}

	var env models.Envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome = "rejected"
		return nil, errors.UpstreamRejected(
			fmt.Sprintf("%s answered HTTP %d", endpoint, resp.StatusCode),
			diagnosticPayload(body, decodeErr), nil,
		).WithStatus(resp.StatusCode)
	}

	if decodeErr != nil {
		outcome = "malformed"
		return nil, errors.UpstreamRejected(endpoint+" returned a malformed envelope", diagnosticPayload(body, decodeErr), decodeErr)
	}

	if !env.Success {
		outcome = "rejected"
		msg := env.Message
		if msg == "" {
			msg = endpoint + " reported success=false"
		}
		return nil, errors.UpstreamRejected(msg, diagnosticPayload(body, nil), nil).WithStatus(resp.StatusCode)
	}

	outcome = "ok"
	c.logger.Debug("Upstream request completed",
		logging.String("endpoint", endpoint),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)),
	)
	return &env, nil
}

const maxDiagnosticBytes = 512

// diagnosticPayload keeps the upstream answer for the 502 body: decoded JSON
// when possible, otherwise the raw text truncated to a sane length.
func diagnosticPayload(body []byte, decodeErr error) interface{} {
	if decodeErr == nil {
		var payload interface{}
		if err := json.Unmarshal(body, &payload); err == nil {
			return payload
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxDiagnosticBytes {
		cut := maxDiagnosticBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	if text == "" {
		return nil
	}
	return text
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// isRetryable limits retries to transport failures the next attempt can fix
func isRetryable(err error) bool {
	if circuitbreaker.IsOpenError(err) {
		return false
	}
	switch errors.GetType(err) {
	case errors.ErrTypeConnection, errors.ErrTypeTimeout:
		return true
	}
	return false
}
