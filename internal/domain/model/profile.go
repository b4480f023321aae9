package model

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Profile is the onboarding snapshot the classifier reads for a user.
type Profile struct {
	UserID               string               `json:"user_id" validate:"required"`
	TrainingBackground   TrainingBackground   `json:"training_background"`
	MovementCompetencies MovementCompetencies `json:"movement_competencies"`
	PhysicalProfile      PhysicalProfile      `json:"physical_profile"`
}

// TrainingBackground holds the self-reported training history.
type TrainingBackground struct {
	CurrentConsecutiveMonths float64 `json:"current_consecutive_months" validate:"gte=0"`
	TotalDetrainingMonths    float64 `json:"total_detraining_months" validate:"gte=0"`
	TotalChronologicalMonths float64 `json:"total_chronological_months" validate:"gte=0,gtefield=CurrentConsecutiveMonths"`
	AverageSessionsPerWeek   float64 `json:"average_sessions_per_week" validate:"gte=0,lte=21"`
	HasUsedPeriodization     bool    `json:"has_used_periodization"`
	UnderstandsRPE           bool    `json:"understands_rpe"`
}

// MovementCompetencies holds technique ratings on a 1-5 scale.
// SelfRating wins over the per-movement Ratings when both are present.
type MovementCompetencies struct {
	SelfRating *float64           `json:"self_rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Ratings    map[string]float64 `json:"ratings,omitempty" validate:"omitempty,dive,gte=1,lte=5"`
}

// PhysicalProfile holds bodyweight and best lifts in kilograms.
type PhysicalProfile struct {
	BodyweightKg float64  `json:"bodyweight_kg" validate:"gte=0"`
	BenchPressKg *float64 `json:"bench_press_kg,omitempty" validate:"omitempty,gt=0"`
	SquatKg      *float64 `json:"squat_kg,omitempty" validate:"omitempty,gt=0"`
	DeadliftKg   *float64 `json:"deadlift_kg,omitempty" validate:"omitempty,gt=0"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the profile before it crosses the store boundary.
func (p *Profile) Validate() error {
	if err := structValidator().Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	return nil
}
