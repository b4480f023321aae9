package confidence

import (
	model "github.com/okian/trainage/internal/domain/model"
)

// Contradiction patterns.
const (
	PatternAdvancedClaimingBeginnerExercises    = "advanced_claiming_beginner_exercises"
	PatternBeginnerClaimingIntermediateProgress = "beginner_claiming_intermediate_progression"
)

const minPatternSignals = 3

// Detect scans signals for known contradictions with the claimed tier.
// Detection only proposes; callers gate the proposal like any other.
func Detect(signals []model.BehavioralSignal, claimed model.Tier) (Proposal, bool) {
	var beginnerSelection, intermediateProgression int
	for _, s := range signals {
		switch {
		case s.Type == model.SignalExerciseSelection && s.Indicator == model.Beginner:
			beginnerSelection++
		case s.Type == model.SignalProgressionResponse && s.Indicator == model.Intermediate:
			intermediateProgression++
		}
	}

	switch {
	case claimed >= model.Advanced && beginnerSelection >= minPatternSignals:
		return Proposal{
			From:       claimed,
			To:         model.Intermediate,
			Confidence: 0.7,
			Reason:     PatternAdvancedClaimingBeginnerExercises,
		}, true
	case claimed == model.Beginner && intermediateProgression >= minPatternSignals:
		return Proposal{
			From:       claimed,
			To:         model.Intermediate,
			Confidence: 0.8,
			Reason:     PatternBeginnerClaimingIntermediateProgress,
		}, true
	}
	return Proposal{}, false
}
