package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drug-risk-service/internal/common/errors"
	"drug-risk-service/internal/common/logging"
	"drug-risk-service/internal/config"
	"drug-risk-service/internal/enrichment"
	"drug-risk-service/internal/models"
	"drug-risk-service/internal/testutil"
	"drug-risk-service/internal/upstream"
)

type stubEnricher struct {
	page  *enrichment.Page
	err   error
	token string
	query url.Values
}

func (s *stubEnricher) Enrich(_ context.Context, token string, query url.Values) (*enrichment.Page, error) {
	s.token = token
	s.query = query
	return s.page, s.err
}

func testConfig() *config.Config {
	return &config.Config{ServiceName: "drug-risk-service", UpstreamBaseURL: "http://catalog:5000/api"}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	h := New(nil, testConfig(), logging.NewNopLogger())
	h.now = func() time.Time { return time.Date(2025, 6, 1, 9, 30, 0, 120e6, time.UTC) }

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]interface{}{
		"ok":      true,
		"service": "drug-risk-service",
		"backend": "http://catalog:5000/api",
		"ts":      "2025-06-01T09:30:00.120Z",
	}, decode(t, rec))
}

func TestRiskDrugs_Success(t *testing.T) {
	enricher := &stubEnricher{page: &enrichment.Page{
		Drugs:      []models.Drug{{"_id": "d1", "risk": map[string]interface{}{"score": 12}}},
		Pagination: json.RawMessage(`{"page":3}`),
	}}
	h := New(enricher, testConfig(), logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodGet, "/risk/drugs?page=3&search=para", nil)
	req.Header.Set("Authorization", "Bearer caller-token")
	rec := httptest.NewRecorder()
	h.RiskDrugs(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"drugs":[{"_id":"d1","risk":{"score":12}}],"pagination":{"page":3}}}`, rec.Body.String())
	assert.Equal(t, "caller-token", enricher.token)
	assert.Equal(t, url.Values{"page": {"3"}, "search": {"para"}}, enricher.query)
}

func TestRiskDrugs_NullPagination(t *testing.T) {
	h := New(&stubEnricher{page: &enrichment.Page{Drugs: []models.Drug{}}}, testConfig(), logging.NewNopLogger())

	rec := httptest.NewRecorder()
	h.RiskDrugs(rec, httptest.NewRequest(http.MethodGet, "/risk/drugs", nil))

	assert.JSONEq(t, `{"success":true,"data":{"drugs":[],"pagination":null}}`, rec.Body.String())
}

func TestRiskDrugs_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "unauthorized",
			err:        errors.AuthError("missing bearer token"),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"success":false,"message":"missing bearer token"}`,
		},
		{
			name:       "upstream rejection carries payload",
			err:        errors.UpstreamRejected("drugs answered HTTP 403", map[string]interface{}{"success": false, "message": "forbidden"}, nil),
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"success":false,"message":"drugs answered HTTP 403","backend":{"success":false,"message":"forbidden"}}`,
		},
		{
			name:       "upstream failure without payload names the backend",
			err:        errors.UpstreamRejected("failed to fetch drug list", nil, errors.ConnectionError("refused", nil)),
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"success":false,"message":"failed to fetch drug list","backend":"http://catalog:5000/api"}`,
		},
		{
			name:       "internal",
			err:        errors.InternalError("drug enrichment failed", fmt.Errorf("boom")),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"success":false,"message":"Failed to compute drug risk","error":"internal: drug enrichment failed: cause=boom"}`,
		},
		{
			name:       "plain error",
			err:        fmt.Errorf("unexpected"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"success":false,"message":"Failed to compute drug risk","error":"unexpected"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&stubEnricher{err: tt.err}, testConfig(), logging.NewNopLogger())
			rec := httptest.NewRecorder()
			h.RiskDrugs(rec, httptest.NewRequest(http.MethodGet, "/risk/drugs", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"BEARER abc":   "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
	}

	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, bearerToken(req), "header %q", header)
	}
}

func TestRiskDrugs_EndToEnd(t *testing.T) {
	up := testutil.NewFakeUpstream()
	defer up.Close()
	up.SetDrugs(testutil.NewDrugBuilder("d1").Recalled().Build()).
		SetPagination(map[string]interface{}{"page": 1, "total": 1})

	client, err := upstream.NewClient(up.URL(), upstream.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	t.Run("forwards the caller credential", func(t *testing.T) {
		svc := enrichment.NewService(client, enrichment.Config{ServiceToken: "svc"}, enrichment.WithLogger(logging.NewNopLogger()))
		h := New(svc, testConfig(), logging.NewNopLogger())

		req := httptest.NewRequest(http.MethodGet, "/risk/drugs?page=1", nil)
		req.Header.Set("Authorization", "Bearer caller")
		rec := httptest.NewRecorder()
		h.RiskDrugs(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		data := body["data"].(map[string]interface{})
		drugs := data["drugs"].([]interface{})
		require.Len(t, drugs, 1)
		riskBody := drugs[0].(map[string]interface{})["risk"].(map[string]interface{})
		assert.Equal(t, "high", riskBody["level"])
		assert.Equal(t, float64(70), riskBody["score"])
		assert.Equal(t, map[string]interface{}{"page": float64(1), "total": float64(1)}, data["pagination"])
		assert.Equal(t, "Bearer caller", up.Authorizations()[0])
	})

	t.Run("falls back to the service token", func(t *testing.T) {
		svc := enrichment.NewService(client, enrichment.Config{ServiceToken: "svc"}, enrichment.WithLogger(logging.NewNopLogger()))
		h := New(svc, testConfig(), logging.NewNopLogger())

		before := len(up.Authorizations())
		rec := httptest.NewRecorder()
		h.RiskDrugs(rec, httptest.NewRequest(http.MethodGet, "/risk/drugs", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Bearer svc", up.Authorizations()[before])
	})

	t.Run("no credential at all", func(t *testing.T) {
		svc := enrichment.NewService(client, enrichment.Config{}, enrichment.WithLogger(logging.NewNopLogger()))
		h := New(svc, testConfig(), logging.NewNopLogger())

		before := up.TotalCalls()
		rec := httptest.NewRecorder()
		h.RiskDrugs(rec, httptest.NewRequest(http.MethodGet, "/risk/drugs", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, before, up.TotalCalls())
	})
}
