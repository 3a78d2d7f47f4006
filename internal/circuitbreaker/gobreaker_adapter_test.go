package circuitbreaker

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drug-risk-service/internal/common/errors"
	"drug-risk-service/internal/common/logging"
)

func testConfig(maxFailures int) Config {
	return Config{
		MaxFailures:           maxFailures,
		Timeout:               50 * time.Millisecond,
		MaxConcurrentRequests: 1,
		Interval:              time.Minute,
	}
}

func TestGoBreakerAdapter(t *testing.T) {
	logger := logging.NewNopLogger()
	ctx := context.Background()

	t.Run("basic operation", func(t *testing.T) {
		cb := NewGoBreaker("test-basic", testConfig(2), logger)

		assert.Equal(t, StateClosed, cb.State())
		assert.NoError(t, cb.Execute(ctx, func() error { return nil }))
		assert.Equal(t, StateClosed, cb.State())
		assert.Equal(t, "test-basic", cb.Name())
	})

	t.Run("circuit opens after consecutive failures", func(t *testing.T) {
		cb := NewGoBreaker("test-failures", testConfig(3), logger)

		for i := 0; i < 3; i++ {
			err := cb.Execute(ctx, func() error {
				return errors.ConnectionError("refused", fmt.Errorf("failure %d", i))
			})
			assert.Error(t, err)
		}
		assert.Equal(t, StateOpen, cb.State())

		err := cb.Execute(ctx, func() error {
			t.Fatal("must not be called while open")
			return nil
		})
		require.Error(t, err)
		assert.True(t, IsOpenError(err))
		assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
	})

	t.Run("half-open then closed after success", func(t *testing.T) {
		cb := NewGoBreaker("test-half-open", testConfig(1), logger)

		_ = cb.Execute(ctx, func() error { return errors.ConnectionError("refused", nil) })
		require.Equal(t, StateOpen, cb.State())

		time.Sleep(70 * time.Millisecond)
		assert.Equal(t, StateHalfOpen, cb.State())

		assert.NoError(t, cb.Execute(ctx, func() error { return nil }))
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("client side rejections do not trip", func(t *testing.T) {
		cb := NewGoBreaker("test-4xx", testConfig(2), logger)

		for i := 0; i < 5; i++ {
			err := cb.Execute(ctx, func() error {
				return errors.UpstreamRejected("not found", nil, nil).WithStatus(http.StatusNotFound)
			})
			assert.Error(t, err)
		}
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("5xx rejections trip", func(t *testing.T) {
		cb := NewGoBreaker("test-5xx", testConfig(2), logger)

		for i := 0; i < 2; i++ {
			_ = cb.Execute(ctx, func() error {
				return errors.UpstreamRejected("unavailable", nil, nil).WithStatus(http.StatusServiceUnavailable)
			})
		}
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("cancelled context is not attempted", func(t *testing.T) {
		cb := NewGoBreaker("test-cancel", testConfig(1), logger)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := cb.Execute(cancelled, func() error {
			t.Fatal("must not be called")
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("stats tracking", func(t *testing.T) {
		cb := NewGoBreaker("test-stats", testConfig(10), logger)

		_ = cb.Execute(ctx, func() error { return nil })
		_ = cb.Execute(ctx, func() error { return nil })
		_ = cb.Execute(ctx, func() error { return errors.TimeoutError("drug list", nil) })

		stats := cb.Stats()
		assert.Equal(t, "test-stats", stats.Name)
		assert.Equal(t, "closed", stats.State)
		assert.Equal(t, 2, stats.Successes)
		assert.Equal(t, 1, stats.Failures)
	})

	t.Run("invalid config falls back to defaults", func(t *testing.T) {
		cb := NewGoBreaker("test-invalid", Config{}, logger)
		assert.Equal(t, StateClosed, cb.State())
		assert.NoError(t, cb.Execute(ctx, func() error { return nil }))
	})
}

func TestIsHealthyOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"cancelled", context.Canceled, true},
		{"wrapped cancelled", fmt.Errorf("get: %w", context.Canceled), true},
		{"unauthorized", errors.AuthError("bad token"), true},
		{"upstream 404", errors.UpstreamRejected("missing", nil, nil).WithStatus(404), true},
		{"upstream success=false on 200", errors.UpstreamRejected("no", nil, nil).WithStatus(200), true},
		{"upstream 502", errors.UpstreamRejected("bad gateway", nil, nil).WithStatus(502), false},
		{"upstream without status", errors.UpstreamRejected("malformed", nil, nil), false},
		{"connection", errors.ConnectionError("refused", nil), false},
		{"timeout", errors.TimeoutError("trust", nil), false},
		{"plain", fmt.Errorf("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHealthyOutcome(tt.err))
		})
	}
}
