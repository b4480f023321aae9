package repository

import (
	"errors"

	model "github.com/okian/trainage/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidLimit    = errors.New("invalid query limit")
	ErrInvalidRecord   = errors.New("invalid record")
	ErrClosed          = errors.New("store closed")
)

// IsPermanent reports whether retrying err cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, ErrInvalidLimit) ||
		errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrClosed) ||
		errors.Is(err, model.ErrInvalidProfile) ||
		errors.Is(err, model.ErrInvalidWorkout)
}
