package classification

import (
	"time"

	"github.com/okian/trainage/internal/domain/scoring"
	"github.com/okian/trainage/pkg/logger"
)

// Option configures a Service.
type Option func(*Service)

// WithCacheSize sets how many effective tiers are cached.
func WithCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// WithEvidenceWindow sets how far back signals count as evidence.
func WithEvidenceWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.evidenceWindow = d
		}
	}
}

// WithPipeline sets the base classification pipeline.
func WithPipeline(p *scoring.Pipeline) Option {
	return func(s *Service) {
		if p != nil {
			s.pipeline = p
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}
