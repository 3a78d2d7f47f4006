// Package risk scores a drug batch from its own record and the lookups
// gathered for it.
//
// Scoring is pure domain logic: no I/O, no clock and no shared state. Every
// rule that fires contributes one Factor, and the sum of their weights,
// clamped to 0..100, is the score.
package risk

import (
	"time"

	"drug-risk-service/internal/models"
)

// Level buckets a score
type Level string

const (
	LevelNormal   Level = "normal"
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Score bounds and level thresholds
const (
	MinScore = 0
	MaxScore = 100

	criticalThreshold = 85
	highThreshold     = 65
	mediumThreshold   = 35
	lowThreshold      = 15
)

// Factor codes, one per rule branch
const (
	CodeRecalled            = "recalled"
	CodeExpired             = "expired"
	CodeNearExpiry          = "near_expiry"
	CodeQualityFail         = "quality_fail"
	CodeQualityPending      = "quality_pending"
	CodeNoTrustScore        = "no_trust_score"
	CodeLowTrustScore       = "low_trust_score"
	CodeMediumTrustScore    = "medium_trust_score"
	CodeGoodTrustScore      = "good_trust_score"
	CodeExcellentTrustScore = "excellent_trust_score"
	CodeLowRating           = "low_rating"
	CodeMediumRating        = "medium_rating"
	CodeHighRating          = "high_rating"
	CodeManyNegative        = "many_negative_reviews"
	CodeNoReviews           = "no_reviews"
	CodeQrFailRate          = "qr_scan_fail_rate"
	CodeNoBlockchain        = "no_blockchain"
	CodeMissingBatchNumber  = "missing_batch_number"
	CodeMissingManufacturer = "missing_manufacturer"
)

// Factor is one rule's contribution to the score
type Factor struct {
	Code        string `json:"code"`
	Weight      int    `json:"weight"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Signals repeats the resolved inputs so callers can see what was scored
type Signals struct {
	TrustScore    *float64        `json:"trustScore"`
	TrustLevel    *string         `json:"trustLevel"`
	TotalReviews  int             `json:"totalReviews"`
	AverageRating *float64        `json:"averageRating"`
	NegativeRatio float64         `json:"negativeRatio"`
	RecentQr      models.QrSignal `json:"recentQr"`
}

// Assessment is the scorer's verdict for one drug
type Assessment struct {
	Score           int      `json:"score"`
	Level           Level    `json:"level"`
	DaysUntilExpiry *int     `json:"daysUntilExpiry"`
	Factors         []Factor `json:"factors"`
	Signals         Signals  `json:"signals"`
}

// Input is everything Score needs for one drug. Trust and Reviews are nil
// when the lookup found nothing or failed.
type Input struct {
	Drug    models.Drug
	Trust   *models.TrustRating
	Reviews *models.ReviewStats
	Qr      models.QrSignal
	Now     time.Time
}
