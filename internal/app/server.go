package app

import (
	"net/http"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"drug-risk-service/internal/handlers"
	"drug-risk-service/internal/server"
)

// RunServer builds the handler chain and the HTTP server around it
func (app *App) RunServer() (*server.Server, http.Handler) {
	h := handlers.New(app.Enrichment, app.Config, app.Logger)

	var metricsHandler http.Handler
	if app.Metrics != nil {
		metricsHandler = app.metricsHandler()
	}

	router := mux.NewRouter()
	SetupRoutes(router, h, metricsHandler, app.Logger)

	handler := withCORS(router, app.Config.CORSOrigin)
	srv := server.New(handler, app.Config.Port, app.Config.TLSCertFile, app.Config.TLSKeyFile)

	return srv, handler
}

// withCORS allows GET requests from origin, which may be "*"
func withCORS(next http.Handler, origin string) http.Handler {
	return gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{origin}),
		gorillaHandlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		gorillaHandlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-ID"}),
		gorillaHandlers.ExposedHeaders([]string{"X-Request-ID"}),
	)(next)
}
