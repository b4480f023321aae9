// Package scoring turns a user's self-reported profile into a base tier.
//
// The functions here are pure: they take values, return values and never
// touch a store. Pipeline chains them in the fixed order
// ExtractFactors -> EffectiveMonths -> Classify -> ValidateStrength.
package scoring

import (
	"math"

	model "github.com/okian/trainage/internal/domain/model"
)

// Effective-age formula constants.
const (
	referenceSessionsPerWeek = 3.0
	maxConsistencyMultiplier = 1.5
	detrainingDecay          = 0.6
	streakWeight             = 0.2
	streakCapShare           = 0.3
	neutralProficiency       = 3.0
	minProficiency           = 1.0
	maxProficiency           = 5.0
)

// Tier boundaries in effective months; each is the inclusive lower bound.
const (
	IntermediateMonths   = 15.0
	AdvancedMonths       = 30.0
	HighlyAdvancedMonths = 60.0
)

// Strength rule thresholds on the average lift-to-bodyweight ratio.
const (
	strengthFloorRatio       = 1.0
	strengthFloorProficiency = 2.5
	strengthCeilingRatio     = 1.5
)

// ExtractFactors normalizes a profile into formula inputs.
//
// Technical proficiency is the self rating when present, else the mean of the
// per-movement ratings, else neutral. Strength ratios are only derived when a
// bodyweight is known.
func ExtractFactors(p model.Profile) model.TrainingFactors {
	bg := p.TrainingBackground
	return model.TrainingFactors{
		CurrentConsecutiveMonths: math.Max(0, bg.CurrentConsecutiveMonths),
		TotalDetrainingMonths:    math.Max(0, bg.TotalDetrainingMonths),
		TotalChronologicalMonths: math.Max(0, bg.TotalChronologicalMonths),
		TechnicalProficiency:     proficiency(p.MovementCompetencies),
		AverageSessionsPerWeek:   math.Max(0, bg.AverageSessionsPerWeek),
		HasUsedPeriodization:     bg.HasUsedPeriodization,
		UnderstandsRPE:           bg.UnderstandsRPE,
		Strength:                 strength(p.PhysicalProfile),
	}
}

func proficiency(mc model.MovementCompetencies) float64 {
	value := neutralProficiency
	switch {
	case mc.SelfRating != nil:
		value = *mc.SelfRating
	case len(mc.Ratings) > 0:
		var sum float64
		for _, r := range mc.Ratings {
			sum += r
		}
		value = sum / float64(len(mc.Ratings))
	}
	return math.Min(maxProficiency, math.Max(minProficiency, value))
}

func strength(pp model.PhysicalProfile) *model.StrengthLevel {
	if pp.BodyweightKg <= 0 {
		return nil
	}
	ratio := func(lift *float64) float64 {
		if lift == nil || *lift <= 0 {
			return 0
		}
		return *lift / pp.BodyweightKg
	}
	s := model.StrengthLevel{
		Bench:    ratio(pp.BenchPressKg),
		Squat:    ratio(pp.SquatKg),
		Deadlift: ratio(pp.DeadliftKg),
	}
	if _, ok := s.Average(); !ok {
		return nil
	}
	return &s
}

// EffectiveMonths computes the decay and bonus adjusted training age.
func EffectiveMonths(f model.TrainingFactors) float64 {
	consistency := math.Min(f.AverageSessionsPerWeek/referenceSessionsPerWeek, maxConsistencyMultiplier)
	penalty := f.TotalDetrainingMonths * detrainingDecay
	streak := math.Min(f.CurrentConsecutiveMonths*streakWeight, f.TotalChronologicalMonths*streakCapShare)
	technique := f.TechnicalProficiency / neutralProficiency

	return math.Max(0, (f.TotalChronologicalMonths*consistency-penalty+streak)*technique)
}

// Classify maps effective months onto a tier.
func Classify(months float64) model.Tier {
	switch {
	case months >= HighlyAdvancedMonths:
		return model.HighlyAdvanced
	case months >= AdvancedMonths:
		return model.Advanced
	case months >= IntermediateMonths:
		return model.Intermediate
	default:
		return model.Beginner
	}
}

// ValidateStrength applies the strength floor and ceiling to a candidate tier.
// It reports whether a rule fired. Without strength data the candidate passes
// through unchanged.
func ValidateStrength(candidate model.Tier, f model.TrainingFactors) (model.Tier, bool) {
	if f.Strength == nil {
		return candidate, false
	}
	avg, ok := f.Strength.Average()
	if !ok {
		return candidate, false
	}
	if avg < strengthFloorRatio && f.TechnicalProficiency < strengthFloorProficiency {
		return model.Beginner, candidate != model.Beginner
	}
	if avg > strengthCeilingRatio && candidate == model.Beginner {
		return model.Intermediate, true
	}
	return candidate, false
}

// RepresentativeMonths is the fixed month value standing in for a tier when
// adjusting it from behavioral evidence.
func RepresentativeMonths(t model.Tier) float64 {
	switch t {
	case model.Intermediate:
		return 22
	case model.Advanced:
		return 45
	case model.HighlyAdvanced:
		return 70
	default:
		return 10
	}
}
