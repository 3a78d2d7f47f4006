package app

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"drug-risk-service/internal/common/logging"
	"drug-risk-service/internal/handlers"
	"drug-risk-service/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application.
// metricsHandler may be nil, in which case /metrics is not mounted.
func SetupRoutes(router *mux.Router, h *handlers.Handlers, metricsHandler http.Handler, logger logging.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Recovery(logger))

	// Health check
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Risk enrichment
	router.HandleFunc("/risk/drugs", h.RiskDrugs).Methods(http.MethodGet)

	// Prometheus scrape endpoint
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	// Swagger UI
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
}
