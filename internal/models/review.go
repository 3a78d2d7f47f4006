package models

import (
	"math"
	"sort"
	"strconv"
)

// ReviewStats is the canonical summary of a drug's reviews
type ReviewStats struct {
	TotalReviews       int         `json:"totalReviews"`
	AverageRating      *float64    `json:"averageRating"`
	NegativeRatio      float64     `json:"negativeRatio"`
	RatingDistribution interface{} `json:"ratingDistribution,omitempty"`
}

// NormalizeReviewStats reads a /reviews/stats payload in any of the shapes
// the review service has produced. It returns nil when none of them match.
//
// Source priority:
//  1. data.stats when it is an object, else data itself
//  2. total: totalReviews, total, count
//  3. average: averageRating, avgRating, average
//  4. negative ratio: negativeRatio, negativeCount/total, 1-2 star share of ratingDistribution
//  5. with no total field, the sum of ratingDistribution counts
func NormalizeReviewStats(env *Envelope) *ReviewStats {
	if env == nil || !env.HasData() {
		return nil
	}

	var data map[string]interface{}
	if err := env.DecodeData(&data); err != nil {
		return nil
	}
	if nested, ok := objectValue(data, "stats"); ok {
		data = nested
	}

	distRaw, hasDist := lookup(data, "ratingDistribution")
	if !hasDist {
		distRaw, hasDist = lookup(data, "distribution")
	}
	counts, distOK := distributionCounts(distRaw)

	total, hasTotal := firstNumber(data, "totalReviews", "total", "count")
	if hasTotal {
		if _, fits := wholeNumber(total); !fits {
			total, hasTotal = 0, false
		}
	}
	if !hasTotal && distOK {
		total, hasTotal = float64(sumCounts(counts)), true
	}

	average, hasAverage := firstNumber(data, "averageRating", "avgRating", "average")
	if !hasTotal && !hasAverage {
		return nil
	}

	totalReviews, _ := wholeNumber(total)
	stats := &ReviewStats{TotalReviews: totalReviews}
	if stats.TotalReviews < 0 {
		stats.TotalReviews = 0
	}
	if hasAverage {
		stats.AverageRating = &average
	}
	if hasDist {
		stats.RatingDistribution = distRaw
	}

	switch {
	case hasNumber(data, "negativeRatio"):
		stats.NegativeRatio, _ = firstNumber(data, "negativeRatio")
	case hasNumber(data, "negativeCount") && total > 0:
		negative, _ := firstNumber(data, "negativeCount")
		stats.NegativeRatio = negative / total
	case distOK:
		if all := sumCounts(counts); all > 0 {
			stats.NegativeRatio = float64(counts[1]+counts[2]) / float64(all)
		}
	}

	return stats
}

func hasNumber(m map[string]interface{}, key string) bool {
	_, ok := firstNumber(m, key)
	return ok
}

// distributionCounts maps star rating to count. It accepts an object keyed
// by star ("1".."5") or an array of counts ordered from one star upwards.
func distributionCounts(v interface{}) (map[int]int, bool) {
	counts := make(map[int]int)
	switch dist := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(dist))
		for k := range dist {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			star, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			if n, ok := distributionCount(dist[k]); ok {
				counts[star] = n
			}
		}
	case []interface{}:
		for i, raw := range dist {
			if n, ok := distributionCount(raw); ok {
				counts[i+1] = n
			}
		}
	default:
		return nil, false
	}
	return counts, true
}

func distributionCount(v interface{}) (int, bool) {
	f, ok := numberValue(v)
	if !ok || f <= 0 {
		return 0, false
	}
	return wholeNumber(f)
}

// sumCounts saturates at math.MaxInt instead of wrapping
func sumCounts(counts map[int]int) int {
	total := 0
	for _, n := range counts {
		if total > math.MaxInt-n {
			return math.MaxInt
		}
		total += n
	}
	return total
}
