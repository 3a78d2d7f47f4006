// Package handlers implements the HTTP surface of the risk service
package handlers

import (
	"context"
	"net/url"
	"time"

	"drug-risk-service/internal/common/logging"
	"drug-risk-service/internal/config"
	"drug-risk-service/internal/enrichment"
)

// Enricher produces an enriched drug page for a caller credential
type Enricher interface {
	Enrich(ctx context.Context, callerToken string, query url.Values) (*enrichment.Page, error)
}

type Handlers struct {
	enricher Enricher
	config   *config.Config
	logger   logging.Logger
	now      func() time.Time
}

func New(enricher Enricher, cfg *config.Config, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		enricher: enricher,
		config:   cfg,
		logger:   logger.WithFields(logging.Component("handlers")),
		now:      time.Now,
	}
}
