// Package errors defines the structured error taxonomy shared by the risk
// service. Every failure that crosses a package boundary is an *AppError so
// callers can classify it with IsType/GetType and map it to a response.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeConnection represents transport failures talking to a dependency
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeValidation represents invalid input
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeAuth represents a missing or unusable bearer credential
	ErrTypeAuth ErrorType = "unauthorized"
	// ErrTypeUpstream represents a non-success answer from the upstream catalog
	ErrTypeUpstream ErrorType = "upstream_rejected"
	// ErrTypeLookup represents a failed per-item trust or review lookup
	ErrTypeLookup ErrorType = "lookup_failure"
	// ErrTypeUnavailable represents an optional snapshot that could not be fetched
	ErrTypeUnavailable ErrorType = "unavailable"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeTimeout represents timeout errors
	ErrTypeTimeout ErrorType = "timeout"
	// ErrTypeRateLimit represents client-side rate limit rejections
	ErrTypeRateLimit ErrorType = "rate_limit"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Status  int                    `json:"status,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface. Context keys are emitted in sorted
// order so messages are stable across runs.
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithStatus records the HTTP status the dependency answered with
func (e *AppError) WithStatus(status int) *AppError {
	e.Status = status
	return e
}

// ConnectionError creates a new connection error
func ConnectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// AuthError creates a new unauthorized error
func AuthError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeAuth,
		Message: msg,
	}
}

// UpstreamRejected creates an error for an upstream call that failed or
// answered success=false. payload is kept for diagnostics under "backend".
func UpstreamRejected(msg string, payload interface{}, cause error) *AppError {
	err := &AppError{
		Type:    ErrTypeUpstream,
		Message: msg,
		Cause:   cause,
	}
	if payload != nil {
		err.WithContext("backend", payload)
	}
	return err
}

// LookupFailure creates an error for a best-effort per-item lookup
func LookupFailure(resource, key string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeLookup,
		Message: fmt.Sprintf("%s lookup failed", resource),
		Cause:   cause,
		Context: map[string]interface{}{"key": key},
	}
}

// UnavailableError creates an error for an optional resource that could not be fetched
func UnavailableError(resource string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeUnavailable,
		Message: fmt.Sprintf("%s unavailable", resource),
		Cause:   cause,
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("timeout during %s", operation),
		Cause:   cause,
	}
}

// RateLimitError creates a new rate limit error
func RateLimitError(resource string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeRateLimit,
		Message: fmt.Sprintf("rate limit wait aborted for %s", resource),
		Cause:   cause,
	}
}

// As returns the first *AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if an error, or anything it wraps, is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := As(err)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}

// HTTPStatus maps an error to the status code the HTTP surface answers with.
// Only the kinds that are allowed to reach a caller have a dedicated code.
func HTTPStatus(err error) int {
	switch GetType(err) {
	case "":
		return http.StatusOK
	case ErrTypeAuth:
		return http.StatusUnauthorized
	case ErrTypeValidation:
		return http.StatusBadRequest
	case ErrTypeUpstream, ErrTypeConnection, ErrTypeTimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
