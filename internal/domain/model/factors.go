package model

// StrengthLevel holds lift-to-bodyweight ratios. A zero ratio means the
// lift is unknown.
type StrengthLevel struct {
	Bench    float64 `json:"bench"`
	Squat    float64 `json:"squat"`
	Deadlift float64 `json:"deadlift"`
}

// Average returns the mean of the known ratios; ok is false when none are known.
func (s StrengthLevel) Average() (avg float64, ok bool) {
	var sum float64
	var n int
	for _, r := range []float64{s.Bench, s.Squat, s.Deadlift} {
		if r > 0 {
			sum += r
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// TrainingFactors is the normalized input of the effective-age formula.
// It is derived from a Profile per evaluation and never stored.
type TrainingFactors struct {
	CurrentConsecutiveMonths float64
	TotalDetrainingMonths    float64
	TotalChronologicalMonths float64
	TechnicalProficiency     float64
	AverageSessionsPerWeek   float64
	HasUsedPeriodization     bool
	UnderstandsRPE           bool
	Strength                 *StrengthLevel
}
