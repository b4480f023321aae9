package repository

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/okian/trainage/pkg/logger"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// RetryOption configures a RetryingStore.
type RetryOption func(*RetryingStore)

// WithBackoff sets the factory building a fresh backoff per operation.
func WithBackoff(factory func() backoff.BackOff) RetryOption {
	return func(s *RetryingStore) {
		if factory != nil {
			s.buildBackoff = factory
		}
	}
}

// WithMaxElapsed bounds the total retry time of one operation.
func WithMaxElapsed(d time.Duration) RetryOption {
	return func(s *RetryingStore) {
		if d > 0 {
			s.maxElapsed = d
		}
	}
}

// WithRetryLogger sets the logger for retry traces.
func WithRetryLogger(l logger.Logger) RetryOption {
	return func(s *RetryingStore) {
		if l != nil {
			s.log = l
		}
	}
}
