// Package confidence weighs behavioral signals against a user's tier and
// proposes corrections when the evidence is strong enough.
package confidence

import (
	"math"

	model "github.com/okian/trainage/internal/domain/model"
)

// Score bounds and defaults.
const (
	MinScore           = 0.1
	MaxScore           = 0.95
	NoEvidenceScore    = 0.3
	validationMinScore = 0.6
)

// Evaluate compares signals against the current tier.
//
// Neutral signals count toward neither side. Without any weighted evidence
// the verdict is a conservative beginner at NoEvidenceScore that needs
// validation.
func Evaluate(signals []model.BehavioralSignal, current model.Tier) model.ClassificationConfidence {
	var supporting, contradictory []model.BehavioralSignal
	var sw, cw float64
	for _, s := range signals {
		if !s.Indicator.IsReal() {
			continue
		}
		if supports(s.Indicator, current) {
			supporting = append(supporting, s)
			sw += s.Confidence
			continue
		}
		contradictory = append(contradictory, s)
		cw += s.Confidence
	}

	if sw+cw <= 0 {
		return model.ClassificationConfidence{
			CurrentTier:     model.Beginner,
			Score:           NoEvidenceScore,
			Supporting:      supporting,
			Contradictory:   contradictory,
			NeedsValidation: true,
		}
	}

	score := clamp(sw / (sw + cw))
	return model.ClassificationConfidence{
		CurrentTier:     current,
		Score:           score,
		Supporting:      supporting,
		Contradictory:   contradictory,
		NeedsValidation: score < validationMinScore || cw > sw,
	}
}

// supports treats advanced evidence as compatible with highly advanced.
func supports(indicator, current model.Tier) bool {
	if indicator == current {
		return true
	}
	return current == model.HighlyAdvanced && indicator == model.Advanced
}

func clamp(v float64) float64 {
	return math.Min(MaxScore, math.Max(MinScore, v))
}
