// Package repository defines the persistence contracts of the classifier and
// an in-memory implementation of them.
package repository

import (
	"context"
	"time"

	model "github.com/okian/trainage/internal/domain/model"
)

// ProfileStore reads and writes onboarding profiles.
type ProfileStore interface {
	// GetProfile returns ErrProfileNotFound when the user is unknown.
	GetProfile(ctx context.Context, userID string) (model.Profile, error)
	// SaveProfile validates and upserts a profile.
	SaveProfile(ctx context.Context, p model.Profile) error
	// ListUserIDs returns every user with a profile in ascending order.
	ListUserIDs(ctx context.Context) ([]string, error)
}

// SignalStore is the append-only behavioral signal log.
type SignalStore interface {
	// AppendSignal records a signal. Re-appending a known ID is a no-op.
	AppendSignal(ctx context.Context, s model.BehavioralSignal) error
	// QuerySignals returns signals at or after since, most recent first.
	QuerySignals(ctx context.Context, userID string, since time.Time) ([]model.BehavioralSignal, error)
}

// WorkoutStore is the workout log.
type WorkoutStore interface {
	// AppendWorkout records a workout. Re-appending a known ID is a no-op.
	AppendWorkout(ctx context.Context, w model.Workout) error
	// QueryRecentWorkouts returns workouts dated at or after since, most recent first.
	QueryRecentWorkouts(ctx context.Context, userID string, since time.Time) ([]model.Workout, error)
}

// HistoryStore is the append-only classification history.
type HistoryStore interface {
	// AppendHistoryEntry records an entry. Re-appending a known ID is a no-op.
	AppendHistoryEntry(ctx context.Context, e model.HistoryEntry) error
	// QueryHistory returns up to limit entries, most recent first.
	QueryHistory(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error)
}

// AuditStore records completed audit runs.
type AuditStore interface {
	AppendAuditRecord(ctx context.Context, r model.AuditRecord) error
	// QueryAuditRecords returns up to limit records, most recent first.
	QueryAuditRecords(ctx context.Context, userID string, limit int) ([]model.AuditRecord, error)
}

// Store bundles every contract behind one backend.
type Store interface {
	ProfileStore
	SignalStore
	WorkoutStore
	HistoryStore
	AuditStore

	// Close releases backend resources.
	Close() error
}

func validateSignal(s model.BehavioralSignal) error {
	if s.ID == "" || s.UserID == "" {
		return ErrInvalidRecord
	}
	return nil
}

func validateHistoryEntry(e model.HistoryEntry) error {
	if e.ID == "" || e.UserID == "" || !e.Tier.IsReal() {
		return ErrInvalidRecord
	}
	return nil
}

func validateAuditRecord(r model.AuditRecord) error {
	if r.ID == "" || r.UserID == "" {
		return ErrInvalidRecord
	}
	return nil
}

// ValidateLimit rejects non-positive query limits.
func ValidateLimit(limit int) error {
	if limit <= 0 {
		return ErrInvalidLimit
	}
	return nil
}
