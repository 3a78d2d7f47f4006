package models

// TrustRating is a manufacturer's reputation as reported upstream. Either
// field may be unknown.
type TrustRating struct {
	Score *float64 `json:"score"`
	Level *string  `json:"level"`
}

// NormalizeTrust reads a /trust-scores payload. score comes from score then
// trustScore, level from level then trustLevel. A missing payload yields a
// rating with both fields unknown.
func NormalizeTrust(env *Envelope) TrustRating {
	var rating TrustRating
	if env == nil || !env.HasData() {
		return rating
	}

	var data map[string]interface{}
	if err := env.DecodeData(&data); err != nil {
		return rating
	}

	if score, ok := firstNumber(data, "score", "trustScore"); ok {
		rating.Score = &score
	}
	if level, ok := firstString(data, "level", "trustLevel"); ok {
		rating.Level = &level
	}
	return rating
}
