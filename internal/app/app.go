package app

import (
	"context"
	"net/http"

	"drug-risk-service/internal/circuitbreaker"
	"drug-risk-service/internal/common/logging"
	"drug-risk-service/internal/config"
	"drug-risk-service/internal/enrichment"
	"drug-risk-service/internal/metrics"
	"drug-risk-service/internal/upstream"
)

// App holds all the application dependencies
type App struct {
	Config     *config.Config
	Metrics    *metrics.Metrics
	Breaker    *circuitbreaker.GoBreakerAdapter
	Upstream   *upstream.Client
	Enrichment *enrichment.Service
	Logger     logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.WithFields(logging.Component("app")),
	}

	app.initializeMetrics()
	app.initializeBreaker()

	if err := app.initializeUpstream(); err != nil {
		return nil, err
	}

	app.initializeEnrichment()

	app.Logger.Info("Application initialized",
		logging.String("upstream", cfg.UpstreamBaseURL),
		logging.Int("concurrency", cfg.Concurrency),
		logging.Duration("cache_ttl", cfg.CacheTTL),
		logging.Bool("breaker", app.Breaker != nil),
		logging.Bool("metrics", app.Metrics != nil),
	)
	return app, nil
}

func (app *App) initializeMetrics() {
	if app.Config.MetricsEnabled {
		app.Metrics = metrics.New()
	}
}

func (app *App) initializeBreaker() {
	if app.Config.BreakerEnabled {
		app.Breaker = circuitbreaker.NewGoBreaker("upstream", circuitbreaker.UpstreamConfig, app.Logger)
	}
}

func (app *App) initializeUpstream() error {
	opts := []upstream.ClientOption{
		upstream.WithTimeout(app.Config.UpstreamTimeout),
		upstream.WithRetryAttempts(app.Config.UpstreamRetryAttempts),
		upstream.WithRateLimit(app.Config.UpstreamRateLimit, app.Config.UpstreamRateBurst),
		upstream.WithMetrics(app.Metrics),
		upstream.WithLogger(app.Logger),
	}
	if app.Breaker != nil {
		opts = append(opts, upstream.WithCircuitBreaker(app.Breaker))
	}

	client, err := upstream.NewClient(app.Config.UpstreamBaseURL, opts...)
	if err != nil {
		return err
	}
	app.Upstream = client
	return nil
}

func (app *App) initializeEnrichment() {
	app.Enrichment = enrichment.NewService(app.Upstream,
		enrichment.Config{
			CacheTTL:     app.Config.CacheTTL,
			Concurrency:  app.Config.Concurrency,
			ServiceToken: app.Config.ServiceToken,
		},
		enrichment.WithMetrics(app.Metrics),
		enrichment.WithLogger(app.Logger),
	)
}

// Shutdown releases application resources once the server has drained
func (app *App) Shutdown(_ context.Context) error {
	if app.Breaker != nil {
		stats := app.Breaker.Stats()
		app.Logger.Info("Upstream breaker final state",
			logging.String("breaker", app.Breaker.Name()),
			logging.String("state", stats.State),
			logging.Int("failures", stats.Failures),
		)
	}
	stats := app.Enrichment.CacheStats()
	app.Logger.Info("Enrichment caches at shutdown",
		logging.Int(enrichment.CacheTrust, stats[enrichment.CacheTrust]),
		logging.Int(enrichment.CacheReview, stats[enrichment.CacheReview]),
	)
	return nil
}

// metricsHandler drops expired cache entries before each scrape so the
// risk_cache_entries gauges report live entries only
func (app *App) metricsHandler() http.Handler {
	next := app.Metrics.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if purged := app.Enrichment.PurgeExpired(); purged > 0 {
			app.Logger.Debug("Purged expired cache entries", logging.Int("expired", purged))
		}
		next.ServeHTTP(w, r)
	})
}
