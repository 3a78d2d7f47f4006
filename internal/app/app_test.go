package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drug-risk-service/internal/config"
	"drug-risk-service/internal/testutil"
)

func testConfig(upstreamURL string) *config.Config {
	return &config.Config{
		Port:                  "0",
		ServiceName:           "drug-risk-service",
		CORSOrigin:            "https://app.example.com",
		MetricsEnabled:        true,
		UpstreamBaseURL:       upstreamURL,
		UpstreamTimeout:       2 * time.Second,
		UpstreamRetryAttempts: 1,
		UpstreamRateBurst:     10,
		BreakerEnabled:        true,
		CacheTTL:              time.Minute,
		Concurrency:           4,
	}
}

func TestApp_Routes(t *testing.T) {
	up := testutil.NewFakeUpstream()
	defer up.Close()
	up.SetDrugs(testutil.NewDrugBuilder("d1").Build())

	app, err := New(testConfig(up.URL()))
	require.NoError(t, err)
	_, handler := app.RunServer()

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, up.URL(), body["backend"])
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("risk drugs", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/risk/drugs", nil)
		req.Header.Set("Authorization", "Bearer caller")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"success":true`)
	})

	t.Run("unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/risk/drugs", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "risk_enrichment_requests_total"))
	})

	t.Run("cors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestApp_MetricsDisabled(t *testing.T) {
	cfg := testConfig("http://localhost:5000/api")
	cfg.MetricsEnabled = false
	cfg.BreakerEnabled = false

	app, err := New(cfg)
	require.NoError(t, err)
	assert.Nil(t, app.Metrics)
	assert.Nil(t, app.Breaker)

	_, handler := app.RunServer()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApp_MetricsScrapePurgesExpiredEntries(t *testing.T) {
	up := testutil.NewFakeUpstream()
	defer up.Close()
	up.SetDrugs(testutil.NewDrugBuilder("d1").Build())

	cfg := testConfig(up.URL())
	cfg.CacheTTL = time.Millisecond
	app, err := New(cfg)
	require.NoError(t, err)
	_, handler := app.RunServer()

	req := httptest.NewRequest(http.MethodGet, "/risk/drugs", nil)
	req.Header.Set("Authorization", "Bearer caller")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]int{"trust": 1, "review": 1}, app.Enrichment.CacheStats())

	time.Sleep(5 * time.Millisecond)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, map[string]int{"trust": 0, "review": 0}, app.Enrichment.CacheStats())
	assert.Contains(t, rec.Body.String(), `risk_cache_entries{cache="trust"} 0`)
	assert.Contains(t, rec.Body.String(), `risk_cache_entries{cache="review"} 0`)
	assert.NoError(t, app.Shutdown(context.Background()))
}
