package model

import (
	"fmt"
	"time"
)

// ExerciseCategory classifies an exercise by movement type.
type ExerciseCategory string

const (
	CategoryCompound  ExerciseCategory = "compound"
	CategoryIsolation ExerciseCategory = "isolation"
	CategoryAccessory ExerciseCategory = "accessory"
)

// ExerciseLog is one exercise as logged inside a workout.
// Reps, Weights and RPE are per set; any of them may be missing.
type ExerciseLog struct {
	Name     string           `json:"name" validate:"required"`
	Category ExerciseCategory `json:"category" validate:"omitempty,oneof=compound isolation accessory"`
	Reps     []int            `json:"reps,omitempty" validate:"omitempty,dive,gte=0"`
	Weights  []float64        `json:"weights,omitempty" validate:"omitempty,dive,gte=0"`
	RPE      []float64        `json:"rpe,omitempty" validate:"omitempty,dive,gte=0,lte=10"`
}

// TopWeight returns the heaviest logged set weight, or 0.
func (e ExerciseLog) TopWeight() float64 {
	var top float64
	for _, w := range e.Weights {
		if w > top {
			top = w
		}
	}
	return top
}

// HasRPE reports whether any set carries an RPE value.
func (e ExerciseLog) HasRPE() bool {
	for _, r := range e.RPE {
		if r > 0 {
			return true
		}
	}
	return false
}

// Workout is a completed training session.
type Workout struct {
	ID        string        `json:"id" validate:"required"`
	UserID    string        `json:"user_id" validate:"required"`
	Date      time.Time     `json:"date" validate:"required"`
	Exercises []ExerciseLog `json:"exercises" validate:"dive"`
}

// Validate checks the workout before it crosses the store boundary.
func (w *Workout) Validate() error {
	if err := structValidator().Struct(w); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWorkout, err)
	}
	return nil
}
