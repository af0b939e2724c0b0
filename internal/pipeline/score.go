package pipeline

import (
	"math"

	"github.com/dbdb168/fs-account-scorer/internal/model"
)

// ScoringPolicy selects how the overall score and tier are derived. The
// two policies are mutually exclusive: one is chosen per run and applied
// uniformly to every company.
type ScoringPolicy string

const (
	// PolicyWeighted is the canonical policy: the weighted sum of the
	// five signal scores.
	PolicyWeighted ScoringPolicy = "weighted"
	// PolicyAppRating derives the score from the average app rating
	// alone; companies without app data get the no-data sentinel and
	// skip signal extraction.
	PolicyAppRating ScoringPolicy = "app_rating"
)

// NoDataScore is the sentinel score for companies with no app rating
// under the app-rating policy.
const NoDataScore = -1

// WeightedScore is the weighted sum of the five signal scores, rounded
// to the nearest integer.
func WeightedScore(s model.Signals) int {
	total := 0.0
	for _, sig := range s.Categories() {
		total += float64(sig.Score) * sig.Weight
	}
	return int(math.Round(total))
}

// WeightedTier maps a weighted score to its priority tier.
// Boundaries are exact: 75 is high, 50 is medium, 49 is lower.
func WeightedTier(score int) model.Tier {
	switch {
	case score >= 75:
		return model.TierHigh
	case score >= 50:
		return model.TierMedium
	default:
		return model.TierLower
	}
}

// AppRatingScore derives a score from the average app rating:
// score = round(100 − rating × 18). A 1.0-star app scores 82 (heavy CX
// pain, strong consulting opportunity); a 5.0-star app scores 10. A nil
// rating yields the no-data sentinel.
func AppRatingScore(rating *float64) int {
	if rating == nil {
		return NoDataScore
	}
	return int(math.Round(100 - *rating*18))
}

// AppRatingTier maps an app-rating-derived score to its tier.
// Boundaries are exact: 65 is high, 40 is medium; negative is no-data.
func AppRatingTier(score int) model.Tier {
	switch {
	case score < 0:
		return model.TierNoData
	case score >= 65:
		return model.TierHigh
	case score >= 40:
		return model.TierMedium
	default:
		return model.TierLower
	}
}

// Score applies the chosen policy to one company's signals and app data,
// returning the overall score and tier.
func Score(policy ScoringPolicy, signals model.Signals, rating *float64) (int, model.Tier) {
	if policy == PolicyAppRating {
		score := AppRatingScore(rating)
		return score, AppRatingTier(score)
	}
	score := WeightedScore(signals)
	return score, WeightedTier(score)
}
