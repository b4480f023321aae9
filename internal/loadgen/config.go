// Package loadgen drives a running classifier over HTTP with synthetic
// trainees: it saves profiles, logs workouts concurrently, triggers audits
// and checks that every trainee ends up with a tier.
package loadgen

import (
	"time"

	model "github.com/okian/trainage/internal/domain/model"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL          string        // Base URL of the service
	Users            int           // Number of synthetic trainees
	WorkoutsPerUser  int           // Workouts logged per trainee
	Workers          int           // Concurrent HTTP requests
	Timeout          time.Duration // HTTP request timeout
	DuplicatePercent int           // Share of workouts re-sent to exercise dedupe
	Settle           time.Duration // Wait between logging and reading tiers
	Audit            bool          // Trigger a manual audit per trainee
	OutputFile       string        // Optional JSON dump of the generated data
}

// DefaultConfig returns the settings used by the CLI when flags are omitted.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:9080",
		Users:            100,
		WorkoutsPerUser:  8,
		Workers:          16,
		Timeout:          30 * time.Second,
		DuplicatePercent: 5,
		Settle:           2 * time.Second,
	}
}

// Trainee is one synthetic user with the data submitted for it.
type Trainee struct {
	Persona  Persona         `json:"persona"`
	Profile  model.Profile   `json:"profile"`
	Workouts []model.Workout `json:"workouts"`
}

// AckResponse is the body returned by the workout endpoint.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	ProfilesSaved     int
	ProfilesFailed    int
	WorkoutsSubmitted int
	WorkoutsAccepted  int
	WorkoutsDuplicate int
	WorkoutsFailed    int
	AuditsRun         int
	AuditsFailed      int
	TiersRetrieved    int
	Tiers             map[model.Tier]int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
