package dictionary

import "math"

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Score ranks e for tier, per the tier-aware formula: a base quality term
// (frequency penalized for compounds/stopwords), an affinity term that
// peaks at the tier's difficulty center, and a direction term that biases
// toward easier words for EASY and harder words for HARD.
func Score(e *Entry, tier Tier) float64 {
	base := clamp01(e.Frequency - penaltyCompound(e) - penaltyStopword(e))
	affinity := math.Max(0, 1-3.5*math.Abs(e.DifficultyScore-tier.center()))

	var direction float64
	switch tier {
	case Easy:
		direction = 1 - e.DifficultyScore
	case Hard:
		direction = e.DifficultyScore
	default:
		direction = 0.5
	}

	return 0.15*base + 0.55*affinity + 0.30*direction
}

func penaltyCompound(e *Entry) float64 {
	if e.IsCompound {
		return 0.15
	}
	return 0
}

func penaltyStopword(e *Entry) float64 {
	if e.IsStopword {
		return 0.30
	}
	return 0
}
