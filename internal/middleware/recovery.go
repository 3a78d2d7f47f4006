package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"drug-risk-service/internal/common/logging"
)

// Recovery turns a handler panic into a 500 with the service's error body
func Recovery(logger logging.Logger) func(http.Handler) http.Handler {
	logger = logger.WithFields(logging.Component("http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err := fmt.Errorf("panic: %v", rec)
				logger.WithContext(r.Context()).Error("Recovered from handler panic", err,
					logging.String("path", r.URL.Path),
					logging.String("stack", string(debug.Stack())),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"message": "Failed to compute drug risk",
					"error":   err.Error(),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
