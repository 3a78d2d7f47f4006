// Package enrichment turns one page of upstream drug records into risk
// assessed records. A request runs strictly in phases: credential, drug
// page, QR snapshot, per-drug fan-out, assembly. Only the first two can
// fail the request; everything after degrades to absent values.
package enrichment

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"drug-risk-service/internal/cache"
	"drug-risk-service/internal/common/errors"
	"drug-risk-service/internal/common/logging"
	"drug-risk-service/internal/metrics"
	"drug-risk-service/internal/models"
	"drug-risk-service/internal/risk"
	"drug-risk-service/internal/workerpool"
)

// Cache names used in metric labels
const (
	CacheTrust  = "trust"
	CacheReview = "review"
)

// Catalog is the slice of the upstream client the service needs
type Catalog interface {
	ListDrugs(ctx context.Context, token string, query url.Values) (*models.Envelope, error)
	QrScanStats(ctx context.Context, token string) (*models.Envelope, error)
	TrustScore(ctx context.Context, token, manufacturerID string) (*models.Envelope, error)
	ReviewStats(ctx context.Context, token, drugID string) (*models.Envelope, error)
}

// Config holds the enrichment settings
type Config struct {
	CacheTTL     time.Duration
	Concurrency  int
	ServiceToken string
}

// DefaultConfig returns default enrichment configuration
func DefaultConfig() Config {
	return Config{
		CacheTTL:    time.Minute,
		Concurrency: 6,
	}
}

// Page is an enriched drug page. Pagination is the upstream value, untouched.
type Page struct {
	Drugs      []models.Drug
	Pagination json.RawMessage
}

// Service enriches drug pages. One Service is shared by all requests; its
// caches live for the process lifetime.
type Service struct {
	catalog Catalog
	config  Config
	trust   *cache.TTL[*models.TrustRating]
	reviews *cache.TTL[*models.ReviewStats]
	metrics *metrics.Metrics
	logger  logging.Logger
	now     cache.Clock
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces time.Now for the caches and expiry arithmetic
func WithClock(clock cache.Clock) Option {
	return func(s *Service) {
		s.now = clock
	}
}

// WithMetrics records cache, failure and request metrics on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the service logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates an enrichment service over catalog
func NewService(catalog Catalog, config Config, opts ...Option) *Service {
	defaults := DefaultConfig()
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.Concurrency < 1 {
		config.Concurrency = defaults.Concurrency
	}

	s := &Service{
		catalog: catalog,
		config:  config,
		logger:  logging.GetGlobalLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.WithFields(logging.Component("enrichment"))
	s.trust = cache.NewTTL[*models.TrustRating](config.CacheTTL, cache.WithClock(s.now))
	s.reviews = cache.NewTTL[*models.ReviewStats](config.CacheTTL, cache.WithClock(s.now))
	return s
}

// ResolveToken picks the caller's credential, falling back to the service
// token. An empty result means the request is unauthorized.
func (s *Service) ResolveToken(callerToken string) string {
	if callerToken != "" {
		return callerToken
	}
	return s.config.ServiceToken
}

// Enrich fetches one drug page with query and scores every record on it.
// callerToken is the bearer credential the caller presented, if any.
//
// Errors are *errors.AppError: ErrTypeAuth when no credential is available,
// ErrTypeUpstream when the drug page cannot be fetched, ErrTypeInternal when
// a worker fails unexpectedly. No partial page is ever returned.
func (s *Service) Enrich(ctx context.Context, callerToken string, query url.Values) (*Page, error) {
	page, err := s.enrich(ctx, callerToken, query)
	s.metrics.IncrementEnrichment(outcomeOf(err))
	s.metrics.SetCacheEntries(CacheTrust, s.trust.Len())
	s.metrics.SetCacheEntries(CacheReview, s.reviews.Len())
	return page, err
}

func (s *Service) enrich(ctx context.Context, callerToken string, query url.Values) (*Page, error) {
	logger := s.logger.WithContext(ctx)

	token := s.ResolveToken(callerToken)
	if token == "" {
		return nil, errors.AuthError("missing bearer token")
	}

	env, err := s.catalog.ListDrugs(ctx, token, query)
	if err != nil {
		if !errors.IsType(err, errors.ErrTypeUpstream) {
			err = errors.UpstreamRejected("failed to fetch drug list", nil, err)
		}
		return nil, err
	}

	drugPage, err := models.ParseDrugPage(env)
	if err != nil {
		return nil, errors.UpstreamRejected("upstream drug list is malformed", nil, err)
	}

	qr := s.qrIndex(ctx, logger, token)
	now := s.now()

	results := workerpool.Run(ctx, drugPage.Drugs, s.config.Concurrency,
		func(ctx context.Context, drug models.Drug, _ int) (models.Drug, error) {
			s.metrics.WorkerStarted()
			defer s.metrics.WorkerFinished()
			return s.enrichDrug(ctx, logger, token, drug, qr, now), nil
		})

	enriched := make([]models.Drug, len(results))
	for i, res := range results {
		if !res.OK() {
			return nil, errors.InternalError("drug enrichment failed", res.Err).WithContext("index", i)
		}
		enriched[i] = res.Value
	}

	logger.Debug("Enriched drug page",
		logging.Int("drugs", len(enriched)),
		logging.Int("qr_drugs", len(qr)),
	)
	return &Page{Drugs: enriched, Pagination: drugPage.Pagination}, nil
}

// qrIndex fetches the QR snapshot. Any failure yields an empty index.
func (s *Service) qrIndex(ctx context.Context, logger logging.Logger, token string) models.QrIndex {
	env, err := s.catalog.QrScanStats(ctx, token)
	if err != nil {
		s.metrics.IncrementLookupFailures("qr")
		logger.Warn("QR snapshot unavailable, scoring without scan signals",
			logging.Err(errors.UnavailableError("qr scan statistics", err)),
		)
		return models.QrIndex{}
	}
	return models.BuildQrIndex(env)
}

func (s *Service) enrichDrug(ctx context.Context, logger logging.Logger, token string, drug models.Drug, qr models.QrIndex, now time.Time) models.Drug {
	in := risk.Input{Drug: drug, Now: now}

	if manufacturerID, ok := drug.ManufacturerID(); ok {
		in.Trust = s.trustRating(ctx, logger, token, manufacturerID)
	}

	if drugID, ok := drug.ID(); ok {
		in.Reviews = s.reviewStats(ctx, logger, token, drugID)
		in.Qr = qr.Signal(drugID)
	}

	return drug.With("risk", risk.Score(in))
}

// trustRating returns the cached or freshly fetched rating; nil is absent
func (s *Service) trustRating(ctx context.Context, logger logging.Logger, token, manufacturerID string) *models.TrustRating {
	key := "trust:" + manufacturerID
	if rating, ok := s.trust.Get(key); ok {
		s.metrics.ObserveCacheLookup(CacheTrust, true)
		return rating
	}
	s.metrics.ObserveCacheLookup(CacheTrust, false)

	env, err := s.catalog.TrustScore(ctx, token, manufacturerID)
	if err != nil {
		s.lookupFailed(ctx, logger, CacheTrust, manufacturerID, err)
		if ctx.Err() == nil {
			s.trust.Set(key, nil)
		}
		return nil
	}

	rating := models.NormalizeTrust(env)
	s.trust.Set(key, &rating)
	return &rating
}

// reviewStats returns the cached or freshly fetched statistics; nil is absent
func (s *Service) reviewStats(ctx context.Context, logger logging.Logger, token, drugID string) *models.ReviewStats {
	key := "review:drug:" + drugID
	if stats, ok := s.reviews.Get(key); ok {
		s.metrics.ObserveCacheLookup(CacheReview, true)
		return stats
	}
	s.metrics.ObserveCacheLookup(CacheReview, false)

	env, err := s.catalog.ReviewStats(ctx, token, drugID)
	if err != nil {
		s.lookupFailed(ctx, logger, CacheReview, drugID, err)
		if ctx.Err() == nil {
			s.reviews.Set(key, nil)
		}
		return nil
	}

	stats := models.NormalizeReviewStats(env)
	s.reviews.Set(key, stats)
	return stats
}

func (s *Service) lookupFailed(ctx context.Context, logger logging.Logger, kind, key string, err error) {
	s.metrics.IncrementLookupFailures(kind)
	logger.Warn("Lookup failed, scoring as unknown",
		logging.Err(errors.LookupFailure(kind, key, err)),
		logging.Bool("cached", ctx.Err() == nil),
	)
}

// PurgeExpired drops expired cache entries and returns how many were removed
func (s *Service) PurgeExpired() int {
	n := s.trust.Purge() + s.reviews.Purge()
	s.metrics.SetCacheEntries(CacheTrust, s.trust.Len())
	s.metrics.SetCacheEntries(CacheReview, s.reviews.Len())
	return n
}

// CacheStats reports resident entries per cache
func (s *Service) CacheStats() map[string]int {
	return map[string]int{
		CacheTrust:  s.trust.Len(),
		CacheReview: s.reviews.Len(),
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	switch errors.GetType(err) {
	case errors.ErrTypeAuth:
		return "unauthorized"
	case errors.ErrTypeUpstream:
		return "upstream_rejected"
	default:
		return "internal"
	}
}
