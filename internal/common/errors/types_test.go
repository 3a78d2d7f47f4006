package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name: "basic error",
			appError: &AppError{
				Type:    ErrTypeConfig,
				Message: "configuration is invalid",
			},
			want: "config: configuration is invalid",
		},
		{
			name: "error with status",
			appError: &AppError{
				Type:    ErrTypeUpstream,
				Message: "drug list rejected",
				Status:  503,
			},
			want: "upstream_rejected: drug list rejected: status=503",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeConnection,
				Message: "upstream request failed",
				Cause:   errors.New("connection refused"),
			},
			want: "connection: upstream request failed: cause=connection refused",
		},
		{
			name: "context keys are sorted",
			appError: &AppError{
				Type:    ErrTypeLookup,
				Message: "trust lookup failed",
				Context: map[string]interface{}{
					"key":      "trust:m1",
					"endpoint": "trust",
				},
			},
			want: "lookup_failure: trust lookup failed: context={endpoint=trust, key=trust:m1}",
		},
		{
			name: "complete error",
			appError: &AppError{
				Type:    ErrTypeInternal,
				Message: "internal system error",
				Code:    "SYS001",
				Cause:   errors.New("panic recovered"),
				Context: map[string]interface{}{
					"component": "enrichment",
				},
			},
			want: "internal: internal system error: code=SYS001: cause=panic recovered: context={component=enrichment}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appError.Error()
			if got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	appError := InternalError("wrapper error", cause)

	if !errors.Is(appError, cause) {
		t.Errorf("errors.Is(appError, cause) = false, want true")
	}

	if ConfigError("no cause").Unwrap() != nil {
		t.Error("Unwrap() without cause should be nil")
	}
}

func TestUpstreamRejected(t *testing.T) {
	payload := map[string]interface{}{"success": false, "message": "db down"}
	err := UpstreamRejected("drug list rejected", payload, nil)

	if err.Type != ErrTypeUpstream {
		t.Errorf("Type = %v, want %v", err.Type, ErrTypeUpstream)
	}
	if err.Context["backend"] == nil {
		t.Error("backend payload should be kept in context")
	}

	withoutPayload := UpstreamRejected("drug list rejected", nil, errors.New("eof"))
	if _, ok := withoutPayload.Context["backend"]; ok {
		t.Error("nil payload should not create a backend entry")
	}
}

func TestLookupFailure(t *testing.T) {
	cause := errors.New("timeout")
	err := LookupFailure("review", "review:drug:d1", cause)

	if err.Type != ErrTypeLookup {
		t.Errorf("Type = %v, want %v", err.Type, ErrTypeLookup)
	}
	if err.Message != "review lookup failed" {
		t.Errorf("Message = %v, want 'review lookup failed'", err.Message)
	}
	if err.Context["key"] != "review:drug:d1" {
		t.Errorf("Context[key] = %v, want review:drug:d1", err.Context["key"])
	}
}

func TestIsType_Wrapped(t *testing.T) {
	base := AuthError("missing bearer token")
	wrapped := fmt.Errorf("enrich: %w", base)

	if !IsType(wrapped, ErrTypeAuth) {
		t.Error("IsType should see through fmt.Errorf wrapping")
	}
	if IsType(wrapped, ErrTypeUpstream) {
		t.Error("IsType matched the wrong type")
	}
	if IsType(nil, ErrTypeAuth) {
		t.Error("IsType(nil) should be false")
	}
}

func TestGetType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), ErrTypeInternal},
		{"app error", TimeoutError("drug list", nil), ErrTypeTimeout},
		{"wrapped app error", fmt.Errorf("x: %w", UnavailableError("qr snapshot", nil)), ErrTypeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetType(tt.err); got != tt.want {
				t.Errorf("GetType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"unauthorized", AuthError("no token"), http.StatusUnauthorized},
		{"upstream rejected", UpstreamRejected("rejected", nil, nil), http.StatusBadGateway},
		{"connection", ConnectionError("refused", nil), http.StatusBadGateway},
		{"timeout", TimeoutError("drug list", nil), http.StatusBadGateway},
		{"validation", ValidationError("bad"), http.StatusBadRequest},
		{"internal", InternalError("boom", nil), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
