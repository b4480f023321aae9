package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SignalType names the kind of behavior a signal was extracted from.
type SignalType string

const (
	SignalExerciseSelection   SignalType = "exercise_selection"
	SignalProgressionResponse SignalType = "progression_response"
	SignalWorkoutPerformance  SignalType = "workout_performance"
	SignalConsistencyPattern  SignalType = "consistency_pattern"
	SignalTerminologyUsage    SignalType = "terminology_usage"
)

// ParseSignalType validates a stored signal type name.
func ParseSignalType(s string) (SignalType, error) {
	switch t := SignalType(s); t {
	case SignalExerciseSelection, SignalProgressionResponse, SignalWorkoutPerformance,
		SignalConsistencyPattern, SignalTerminologyUsage:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSignalType, s)
}

// BehavioralSignal is one piece of workout-derived evidence about a user's tier.
// Signals are immutable and append-only.
type BehavioralSignal struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Type       SignalType `json:"signal_type"`
	Value      string     `json:"signal_value"`
	Indicator  Tier       `json:"tier_indicator"`
	Confidence float64    `json:"confidence"`
	Timestamp  time.Time  `json:"timestamp"`
}

// signalNamespace scopes deterministic signal ids.
var signalNamespace = uuid.MustParse("6f1c2a0e-3b7d-4c55-9a8e-2d1f0b7c9e41")

// NewSignal builds a signal whose ID is derived from its content, so that
// re-appending the same observation is idempotent.
func NewSignal(userID string, typ SignalType, value string, indicator Tier, confidence float64, ts time.Time) BehavioralSignal {
	ts = ts.UTC()
	key := strings.Join([]string{userID, string(typ), value, strconv.FormatInt(ts.UnixNano(), 10)}, "|")
	return BehavioralSignal{
		ID:         uuid.NewSHA1(signalNamespace, []byte(key)).String(),
		UserID:     userID,
		Type:       typ,
		Value:      value,
		Indicator:  indicator,
		Confidence: confidence,
		Timestamp:  ts,
	}
}
