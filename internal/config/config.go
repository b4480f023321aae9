// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and TRAINAGE_* env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Store drivers understood by the service.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// RateLimitPerMinute and RateLimitBurst bound requests per client IP.
	// Zero disables rate limiting.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`
	RateLimitBurst     int `koanf:"rate_limit_burst"`

	// StoreDriver selects the persistence backend: memory, sqlite, postgres or badger.
	StoreDriver string `koanf:"store_driver"`
	// StoreDSN is the driver-specific data source name. For badger it is a
	// directory; empty keeps the database in memory.
	StoreDSN string `koanf:"store_dsn"`
	// RetryMaxElapsedMS bounds the backoff applied to failed store writes.
	RetryMaxElapsedMS int `koanf:"retry_max_elapsed_ms"`

	// QueueSize bounds the in-memory audit trigger queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of audit workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets how many workout event ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`
	// TierCacheSize sets how many effective tiers are cached.
	TierCacheSize int `koanf:"tier_cache_size"`

	// AuditSchedule is a five-field cron expression for the periodic sweep.
	// Empty disables the sweep.
	AuditSchedule string `koanf:"audit_schedule"`
	// AuditConcurrency caps parallel user audits during a sweep.
	AuditConcurrency int `koanf:"audit_concurrency"`

	// SignalWindowDays is the workout window scanned for signals.
	SignalWindowDays int `koanf:"signal_window_days"`
	// EligibilityWindowDays and MinWorkouts gate audit eligibility.
	EligibilityWindowDays int `koanf:"eligibility_window_days"`
	MinWorkouts           int `koanf:"min_workouts"`
	// EvidenceWindowDays is the signal history considered by evaluations.
	EvidenceWindowDays int `koanf:"evidence_window_days"`
	// ProgressionLift names the compound lift inspected for progression.
	// Empty picks the most frequently logged compound lift.
	ProgressionLift string `koanf:"progression_lift"`

	// Reclassification thresholds.
	AutoApplyConfidence float64 `koanf:"auto_apply_confidence"`
	MinAdjustmentWeight float64 `koanf:"min_adjustment_weight"`
	MinFreshSignals     int     `koanf:"min_fresh_signals"`
	DampingFactor       float64 `koanf:"damping_factor"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		StoreDriver:           DriverMemory,
		StoreDSN:              "",
		RetryMaxElapsedMS:     3000,
		QueueSize:             10_000,
		WorkerCount:           runtime.NumCPU() * 2,
		DedupeSize:            100_000,
		TierCacheSize:         10_000,
		AuditSchedule:         "0 3 * * *",
		AuditConcurrency:      8,
		SignalWindowDays:      28,
		EligibilityWindowDays: 14,
		MinWorkouts:           4,
		EvidenceWindowDays:    30,
		AutoApplyConfidence:   0.7,
		MinAdjustmentWeight:   2.0,
		MinFreshSignals:       3,
		DampingFactor:         6,
	}
}

// Validate checks the values that would otherwise fail deep inside the service.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.SignalWindowDays <= 0 || c.EligibilityWindowDays <= 0 || c.EvidenceWindowDays <= 0:
		return fmt.Errorf("%w: window days must be positive", ErrInvalidConfig)
	case c.AutoApplyConfidence <= 0 || c.AutoApplyConfidence > 1:
		return fmt.Errorf("%w: auto_apply_confidence must be in (0,1]", ErrInvalidConfig)
	case c.DampingFactor <= 0:
		return fmt.Errorf("%w: damping_factor must be positive", ErrInvalidConfig)
	case c.RateLimitPerMinute < 0 || c.RateLimitBurst < 0:
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverMemory, DriverBadger:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.StoreDSN) == "" {
			return fmt.Errorf("%w: store_dsn is required for %s", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
