package service

import (
	"time"

	"github.com/okian/trainage/internal/adapters/repository"
	"github.com/okian/trainage/internal/config"
	"github.com/okian/trainage/internal/domain/confidence"
	"github.com/okian/trainage/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig copies every tunable from a loaded Config.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		s.storeDriver = cfg.StoreDriver
		s.storeDSN = cfg.StoreDSN
		s.retryMaxElapsed = time.Duration(cfg.RetryMaxElapsedMS) * time.Millisecond
		s.workerCount = cfg.WorkerCount
		s.queueSize = cfg.QueueSize
		s.dedupeSize = cfg.DedupeSize
		s.tierCacheSize = cfg.TierCacheSize
		s.auditSchedule = cfg.AuditSchedule
		s.auditConcurrency = cfg.AuditConcurrency
		s.signalWindow = days(cfg.SignalWindowDays)
		s.eligibilityWindow = days(cfg.EligibilityWindowDays)
		s.evidenceWindow = days(cfg.EvidenceWindowDays)
		s.minWorkouts = cfg.MinWorkouts
		s.progressionLift = cfg.ProgressionLift
		s.thresholds = confidence.Thresholds{
			AutoApplyConfidence: cfg.AutoApplyConfidence,
			MinAdjustmentWeight: cfg.MinAdjustmentWeight,
			MinFreshSignals:     cfg.MinFreshSignals,
			DampingFactor:       cfg.DampingFactor,
		}
	}
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// WithStore injects a ready store instead of opening one from the driver settings.
// The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.injected = store
	}
}

// WithWorkerCount sets the number of audit workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the audit queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many workout ids are remembered for deduplication.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithAuditSchedule sets the sweep cron expression. Empty disables the sweep.
func WithAuditSchedule(expr string) Option {
	return func(s *Service) {
		s.auditSchedule = expr
	}
}

// WithClock overrides the time source of the classification components.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
