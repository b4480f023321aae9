package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ClassificationConfidence is the verdict of evaluating signals against a tier.
// It is recomputed on every evaluation and never stored.
type ClassificationConfidence struct {
	CurrentTier     Tier               `json:"current_tier"`
	Score           float64            `json:"confidence_score"`
	Supporting      []BehavioralSignal `json:"supporting_signals"`
	Contradictory   []BehavioralSignal `json:"contradictory_signals"`
	NeedsValidation bool               `json:"needs_validation"`
}

// HistoryTrigger names what caused a history entry.
type HistoryTrigger string

const (
	TriggerInitialOnboarding HistoryTrigger = "initial_onboarding"
	TriggerBehavioralSignals HistoryTrigger = "behavioral_signals"
	TriggerPerformanceData   HistoryTrigger = "performance_data"
)

// HistoryEntry is one append-only record of a user's tier over time.
type HistoryEntry struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Timestamp      time.Time      `json:"timestamp"`
	Tier           Tier           `json:"tier"`
	Confidence     float64        `json:"confidence"`
	Trigger        HistoryTrigger `json:"trigger"`
	SupportingData map[string]any `json:"supporting_data,omitempty"`
}

var historyNamespace = uuid.MustParse("0b8d54e2-71a3-4f0c-8d6e-5c2b9a4e1f73")

// NewHistoryEntry builds an entry with a content-derived ID.
func NewHistoryEntry(userID string, tier Tier, confidence float64, trigger HistoryTrigger, data map[string]any, ts time.Time) HistoryEntry {
	ts = ts.UTC()
	key := userID + "|" + string(trigger) + "|" + tier.String() + "|" + strconv.FormatInt(ts.UnixNano(), 10)
	return HistoryEntry{
		ID:             uuid.NewSHA1(historyNamespace, []byte(key)).String(),
		UserID:         userID,
		Timestamp:      ts,
		Tier:           tier,
		Confidence:     confidence,
		Trigger:        trigger,
		SupportingData: data,
	}
}

// AuditTrigger names what started an audit run.
type AuditTrigger string

const (
	AuditScheduled        AuditTrigger = "scheduled"
	AuditWorkoutCompleted AuditTrigger = "workout_completed"
	AuditManual           AuditTrigger = "manual"
)

// AuditRecord is written once per completed audit run.
type AuditRecord struct {
	ID               string       `json:"id"`
	UserID           string       `json:"user_id"`
	Timestamp        time.Time    `json:"timestamp"`
	WorkoutsAnalyzed int          `json:"workouts_analyzed"`
	Trigger          AuditTrigger `json:"trigger"`
	SignalsRecorded  int          `json:"signals_recorded"`
	PreviousTier     Tier         `json:"previous_tier"`
	ResultTier       Tier         `json:"result_tier"`
}

// AuditEvent asks for one user's audit outside the periodic sweep.
type AuditEvent struct {
	EventID    string       `json:"event_id"`
	UserID     string       `json:"user_id"`
	Trigger    AuditTrigger `json:"trigger"`
	ReceivedAt time.Time    `json:"received_at"`
}
