package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrUnknownTier       = errors.New("unknown tier")
	ErrUnknownSignalType = errors.New("unknown signal type")
	ErrInvalidProfile    = errors.New("invalid profile")
	ErrInvalidWorkout    = errors.New("invalid workout")
)
