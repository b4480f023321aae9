package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/trainage/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Error constants.
var (
	ErrInvalidConfig = errors.New("invalid load run config")
	ErrVerification  = errors.New("load run verification failed")
)

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if cfg.Users <= 0 || cfg.WorkoutsPerUser < 0 || cfg.Workers <= 0 {
		return nil, fmt.Errorf("%w: users and workers must be positive", ErrInvalidConfig)
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()
	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("workoutsPerUser", cfg.WorkoutsPerUser),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Bool("audit", cfg.Audit))

	client := newHTTPClient(cfg.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, &cfg, client); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate trainees
	trainees, err := generateTrainees(ctx, &cfg, stats.StartTime)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	// Step 3: Save profiles, then log workouts
	if err := saveProfiles(ctx, &cfg, client, trainees, stats); err != nil {
		return nil, fmt.Errorf("profile submission failed: %w", err)
	}
	if err := submitWorkouts(ctx, &cfg, client, trainees, stats); err != nil {
		return nil, fmt.Errorf("workout submission failed: %w", err)
	}

	// Step 4: Let the workers drain
	if cfg.Settle > 0 {
		log.Info(ctx, "waiting for audits to settle", logger.Duration("settle", cfg.Settle))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.Settle):
		}
	}

	// Step 5: Optional manual audits
	if cfg.Audit {
		if err := runAudits(ctx, &cfg, client, trainees, stats); err != nil {
			return nil, fmt.Errorf("audits failed: %w", err)
		}
	}

	// Step 6: Read tiers back and verify
	tiers, err := retrieveTiers(ctx, &cfg, client, trainees)
	if err != nil {
		return nil, fmt.Errorf("tier retrieval failed: %w", err)
	}
	verr := verifyResults(ctx, trainees, tiers, stats)

	if cfg.OutputFile != "" {
		if err := saveTrainees(ctx, cfg.OutputFile, trainees); err != nil {
			log.Warn(ctx, "failed to save trainees to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, verr
}

func checkServiceHealth(ctx context.Context, cfg *Config, client *HTTPClient) error {
	status, _, err := client.Do(ctx, http.MethodGet, cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	// /healthz serves the Prometheus exposition; any 200 is healthy.
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", status)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveTrainees writes the generated data as an indented JSON array.
func saveTrainees(ctx context.Context, filename string, trainees []Trainee) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(trainees, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trainees: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "trainees saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.WorkoutsSubmitted) / stats.Duration.Seconds()
	}
	fields := []logger.Field{
		logger.Int("profilesSaved", stats.ProfilesSaved),
		logger.Int("workoutsSubmitted", stats.WorkoutsSubmitted),
		logger.Int("workoutsAccepted", stats.WorkoutsAccepted),
		logger.Int("workoutsDuplicate", stats.WorkoutsDuplicate),
		logger.Int("workoutsFailed", stats.WorkoutsFailed),
		logger.Int("auditsRun", stats.AuditsRun),
		logger.Int("tiersRetrieved", stats.TiersRetrieved),
		logger.Duration("duration", stats.Duration),
		logger.Float64("workoutsPerSecond", perSecond),
	}
	for tier, n := range stats.Tiers {
		fields = append(fields, logger.Int("tier."+tier.String(), n))
	}
	logger.Get().Info(ctx, "final statistics", fields...)
}
