package signals

import (
	"time"

	"github.com/okian/trainage/pkg/logger"
)

// Option configures an Extractor.
type Option func(*Extractor)

// WithWindow sets how far back workouts are considered.
func WithWindow(window time.Duration) Option {
	return func(e *Extractor) {
		if window > 0 {
			e.window = window
		}
	}
}

// WithProgressionLift pins the compound lift inspected for progression.
// When unset the most frequently logged compound lift is used.
func WithProgressionLift(name string) Option {
	return func(e *Extractor) {
		e.lift = name
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the extractor logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.log = l
		}
	}
}
