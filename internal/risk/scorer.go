package risk

import (
	"fmt"
	"sort"
)

// Score evaluates the rule chain for one drug.
// Rule order (all rules are evaluated, weights add up):
//  1. Recall
//  2. Expiry, then near-expiry (mutually exclusive)
//  3. Quality test
//  4. Manufacturer trust tier (exactly one branch)
//  5. Review rating and negative share, or the informational no_reviews
//  6. QR scan failure rate
//  7. Traceability gaps
//
// Factors come back sorted by weight, heaviest first; ties keep rule order.
func Score(in Input) Assessment {
	s := &scoring{}
	days := in.Drug.DaysUntilExpiry(in.Now)

	// Rule 1: Recall
	if in.Drug.Recalled() {
		s.add(CodeRecalled, 60, "Recalled", "Batch is under an active recall")
	}

	// Rule 2: Expiry
	switch {
	case in.Drug.FlaggedExpired() || (days != nil && *days <= 0):
		s.add(CodeExpired, 50, "Expired", "Batch is past its expiry date")
	case in.Drug.FlaggedNearExpiry() || (days != nil && *days <= 30):
		s.add(CodeNearExpiry, 20, "Near expiry", nearExpiryDescription(days))
	}

	// Rule 3: Quality test
	switch {
	case in.Drug.QualityFailed():
		s.add(CodeQualityFail, 40, "Quality test failed", "Latest quality test reported a failure")
	case in.Drug.QualityPending():
		s.add(CodeQualityPending, 10, "Quality test pending", "Quality test result is not available yet")
	}

	// Rule 4: Trust tier
	signals := Signals{RecentQr: in.Qr}
	if in.Trust != nil {
		signals.TrustScore = in.Trust.Score
		signals.TrustLevel = in.Trust.Level
	}
	s.trust(signals.TrustScore)

	// Rule 5: Reviews
	if in.Reviews != nil {
		signals.TotalReviews = in.Reviews.TotalReviews
		signals.AverageRating = in.Reviews.AverageRating
		signals.NegativeRatio = in.Reviews.NegativeRatio
	}
	s.reviews(signals)

	// Rule 6: QR anomaly
	if in.Qr.RecentTotal >= 3 {
		rate := float64(in.Qr.RecentFails) / float64(max(in.Qr.RecentTotal, 1))
		if rate >= 0.5 {
			s.add(CodeQrFailRate, 12, "QR verification failures",
				fmt.Sprintf("%d of the last %d QR scans failed verification", in.Qr.RecentFails, in.Qr.RecentTotal))
		}
	}

	// Rule 7: Traceability completeness
	if _, ok := in.Drug.BlockchainID(); !ok {
		s.add(CodeNoBlockchain, 8, "No blockchain record", "Batch is not linked to a ledger entry")
	}
	if _, ok := in.Drug.BatchNumber(); !ok {
		s.add(CodeMissingBatchNumber, 6, "Missing batch number", "Record has no batch number")
	}
	if _, ok := in.Drug.ManufacturerID(); !ok {
		s.add(CodeMissingManufacturer, 4, "Missing manufacturer", "Record does not reference a manufacturer")
	}

	score := clamp(s.total, MinScore, MaxScore)
	sort.SliceStable(s.factors, func(i, j int) bool {
		return s.factors[i].Weight > s.factors[j].Weight
	})

	return Assessment{
		Score:           score,
		Level:           LevelFor(score),
		DaysUntilExpiry: days,
		Factors:         s.factors,
		Signals:         signals,
	}
}

// LevelFor maps a clamped score to its level
func LevelFor(score int) Level {
	switch {
	case score >= criticalThreshold:
		return LevelCritical
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	case score >= lowThreshold:
		return LevelLow
	default:
		return LevelNormal
	}
}

type scoring struct {
	total   int
	factors []Factor
}

func (s *scoring) add(code string, weight int, label, description string) {
	s.total += weight
	s.factors = append(s.factors, Factor{Code: code, Weight: weight, Label: label, Description: description})
}

func (s *scoring) trust(score *float64) {
	if score == nil {
		s.add(CodeNoTrustScore, 10, "No trust score", "Manufacturer has no trust rating on record")
		return
	}

	v := *score
	switch {
	case v < 400:
		s.add(CodeLowTrustScore, 30, "Low trust score", fmt.Sprintf("Manufacturer trust score %.0f is below 400", v))
	case v < 600:
		s.add(CodeMediumTrustScore, 20, "Medium trust score", fmt.Sprintf("Manufacturer trust score %.0f is below 600", v))
	case v < 800:
		s.add(CodeGoodTrustScore, 10, "Good trust score", fmt.Sprintf("Manufacturer trust score %.0f is below 800", v))
	default:
		s.add(CodeExcellentTrustScore, -5, "Excellent trust score", fmt.Sprintf("Manufacturer trust score %.0f is 800 or above", v))
	}
}

func (s *scoring) reviews(sig Signals) {
	if sig.TotalReviews <= 0 || sig.AverageRating == nil {
		s.add(CodeNoReviews, 0, "No reviews", "No customer reviews to weigh")
		return
	}

	avg := *sig.AverageRating
	switch {
	case avg < 2.5:
		s.add(CodeLowRating, 25, "Low rating", fmt.Sprintf("Average rating %.1f from %d reviews", avg, sig.TotalReviews))
	case avg < 3.5:
		s.add(CodeMediumRating, 10, "Medium rating", fmt.Sprintf("Average rating %.1f from %d reviews", avg, sig.TotalReviews))
	default:
		s.add(CodeHighRating, -5, "High rating", fmt.Sprintf("Average rating %.1f from %d reviews", avg, sig.TotalReviews))
	}

	if sig.NegativeRatio >= 0.3 {
		s.add(CodeManyNegative, 15, "Many negative reviews",
			fmt.Sprintf("%.0f%% of reviews are negative", sig.NegativeRatio*100))
	}
}

func nearExpiryDescription(days *int) string {
	if days == nil {
		return "Batch is flagged as close to expiry"
	}
	return fmt.Sprintf("Batch expires in %d days", *days)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
