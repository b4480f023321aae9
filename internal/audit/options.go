package audit

import (
	"time"

	"github.com/okian/trainage/internal/domain/confidence"
	"github.com/okian/trainage/pkg/logger"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithThresholds sets the reclassification gate and update heuristics.
func WithThresholds(th confidence.Thresholds) Option {
	return func(s *Scheduler) {
		s.thresholds = th
	}
}

// WithSignalWindow sets the workout window scanned for signals.
func WithSignalWindow(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.signalWindow = d
		}
	}
}

// WithEligibility sets how many workouts inside window make a user eligible.
func WithEligibility(window time.Duration, minWorkouts int) Option {
	return func(s *Scheduler) {
		if window > 0 {
			s.eligibilityWindow = window
		}
		if minWorkouts > 0 {
			s.minWorkouts = minWorkouts
		}
	}
}

// WithEvidenceWindow sets how far back stored signals are weighed.
func WithEvidenceWindow(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.evidenceWindow = d
		}
	}
}

// WithProgressionLift pins the lift inspected for progression signals.
func WithProgressionLift(name string) Option {
	return func(s *Scheduler) {
		s.progressionLift = name
	}
}

// WithConcurrency caps parallel user audits during a sweep.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSchedule sets the cron expression of the periodic sweep.
// An empty schedule disables the sweep.
func WithSchedule(expr string) Option {
	return func(s *Scheduler) {
		s.schedule = expr
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}
