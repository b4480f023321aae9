// Package signals derives behavioral evidence from logged workouts.
package signals

import (
	"context"
	"sort"
	"strings"
	"time"

	model "github.com/okian/trainage/internal/domain/model"
	"github.com/okian/trainage/pkg/logger"
)

// DefaultWindow is the minimum viable window for signal generation.
const DefaultWindow = 28 * 24 * time.Hour

// Signal values.
const (
	ValueCompoundFocused    = "compound_focused"
	ValueIsolationFocused   = "isolation_focused"
	ValueConsistentRPE      = "consistent_rpe_usage"
	ValueNoRPE              = "no_rpe_usage"
	ValueLinearProgression  = "consistent_linear_progression"
	ValuePeriodizedProgress = "periodized_progression"
	ValueConsistentTraining = "consistent_training"
	ValueIrregularTraining  = "irregular_training"
)

// Rule thresholds.
const (
	compoundFocusedRatio  = 0.7
	isolationFocusedRatio = 0.3
	consistentRPEUsage    = 0.8
	minLinearSessions     = 3
	minPeriodizedSessions = 4
	consistentPerWeek     = 3.0
	irregularPerWeek      = 1.5
	daysPerWeek           = 7.0
)

// Extractor scans a workout window and emits signals.
type Extractor struct {
	window time.Duration
	lift   string
	now    func() time.Time
	log    logger.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		window: DefaultWindow,
		now:    time.Now,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Window returns the lookback window.
func (e *Extractor) Window() time.Duration { return e.window }

// Extract emits the signals supported by the workouts inside the window.
//
// Signals are stamped with the date of the latest workout considered, so
// running twice over the same data produces identical signal IDs.
// Sparse or malformed data yields fewer signals, never an error.
func (e *Extractor) Extract(ctx context.Context, userID string, workouts []model.Workout) []model.BehavioralSignal {
	since := e.now().Add(-e.window)
	window := make([]model.Workout, 0, len(workouts))
	for _, w := range workouts {
		if !w.Date.Before(since) {
			window = append(window, w)
		}
	}
	if len(window) == 0 {
		return nil
	}
	sort.SliceStable(window, func(i, j int) bool { return window[i].Date.Before(window[j].Date) })
	stamp := window[len(window)-1].Date

	emit := func(typ model.SignalType, value string, indicator model.Tier, confidence float64) model.BehavioralSignal {
		return model.NewSignal(userID, typ, value, indicator, confidence, stamp)
	}

	var out []model.BehavioralSignal
	if s, ok := e.exerciseSelection(window, emit); ok {
		out = append(out, s)
	}
	if s, ok := e.rpeUsage(window, emit); ok {
		out = append(out, s)
	}
	if s, ok := e.progression(window, emit); ok {
		out = append(out, s)
	}
	if s, ok := e.consistency(window, emit); ok {
		out = append(out, s)
	}

	e.log.Debug(ctx, "signals extracted",
		logger.UserID(userID),
		logger.Int("workouts", len(window)),
		logger.Int("signals", len(out)),
	)
	return out
}

type emitFunc func(model.SignalType, string, model.Tier, float64) model.BehavioralSignal

func (e *Extractor) exerciseSelection(ws []model.Workout, emit emitFunc) (model.BehavioralSignal, bool) {
	var total, compound int
	for _, w := range ws {
		for _, ex := range w.Exercises {
			total++
			if ex.Category == model.CategoryCompound {
				compound++
			}
		}
	}
	if total == 0 {
		return model.BehavioralSignal{}, false
	}
	ratio := float64(compound) / float64(total)
	switch {
	case ratio > compoundFocusedRatio:
		return emit(model.SignalExerciseSelection, ValueCompoundFocused, model.Intermediate, 0.6), true
	case ratio < isolationFocusedRatio:
		return emit(model.SignalExerciseSelection, ValueIsolationFocused, model.Beginner, 0.7), true
	}
	return model.BehavioralSignal{}, false
}

func (e *Extractor) rpeUsage(ws []model.Workout, emit emitFunc) (model.BehavioralSignal, bool) {
	var total, withRPE int
	for _, w := range ws {
		for _, ex := range w.Exercises {
			total++
			if ex.HasRPE() {
				withRPE++
			}
		}
	}
	if total == 0 {
		return model.BehavioralSignal{}, false
	}
	usage := float64(withRPE) / float64(total)
	switch {
	case usage > consistentRPEUsage:
		return emit(model.SignalTerminologyUsage, ValueConsistentRPE, model.Advanced, 0.8), true
	case withRPE == 0:
		return emit(model.SignalTerminologyUsage, ValueNoRPE, model.Beginner, 0.6), true
	}
	return model.BehavioralSignal{}, false
}

func (e *Extractor) progression(ws []model.Workout, emit emitFunc) (model.BehavioralSignal, bool) {
	lift := e.lift
	if lift == "" {
		lift = dominantCompoundLift(ws)
	}
	if lift == "" {
		return model.BehavioralSignal{}, false
	}
	tops := sessionTopWeights(ws, lift)

	if len(tops) >= minLinearSessions && strictlyIncreasing(tops) {
		return emit(model.SignalProgressionResponse, ValueLinearProgression, model.Beginner, 0.8), true
	}
	if len(tops) >= minPeriodizedSessions && dipThenNewHigh(tops) {
		return emit(model.SignalProgressionResponse, ValuePeriodizedProgress, model.Intermediate, 0.6), true
	}
	return model.BehavioralSignal{}, false
}

func (e *Extractor) consistency(ws []model.Workout, emit emitFunc) (model.BehavioralSignal, bool) {
	weeks := e.window.Hours() / 24 / daysPerWeek
	if weeks <= 0 {
		return model.BehavioralSignal{}, false
	}
	perWeek := float64(len(ws)) / weeks
	switch {
	case perWeek >= consistentPerWeek:
		return emit(model.SignalConsistencyPattern, ValueConsistentTraining, model.Neutral, 0.5), true
	case perWeek < irregularPerWeek:
		return emit(model.SignalConsistencyPattern, ValueIrregularTraining, model.Beginner, 0.4), true
	}
	return model.BehavioralSignal{}, false
}

// dominantCompoundLift returns the compound lift logged in the most sessions.
func dominantCompoundLift(ws []model.Workout) string {
	sessions := map[string]int{}
	for _, w := range ws {
		seen := map[string]bool{}
		for _, ex := range w.Exercises {
			name := normalize(ex.Name)
			if ex.Category != model.CategoryCompound || name == "" || seen[name] {
				continue
			}
			seen[name] = true
			sessions[name]++
		}
	}
	var best string
	for name, n := range sessions {
		if n > sessions[best] || (n == sessions[best] && name < best) {
			best = name
		}
	}
	return best
}

// sessionTopWeights returns the per-session top weight of lift in date order,
// skipping sessions where it carries no weight.
func sessionTopWeights(ws []model.Workout, lift string) []float64 {
	lift = normalize(lift)
	var tops []float64
	for _, w := range ws {
		var top float64
		for _, ex := range w.Exercises {
			if normalize(ex.Name) == lift {
				if t := ex.TopWeight(); t > top {
					top = t
				}
			}
		}
		if top > 0 {
			tops = append(tops, top)
		}
	}
	return tops
}

func strictlyIncreasing(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] <= v[i-1] {
			return false
		}
	}
	return true
}

func dipThenNewHigh(v []float64) bool {
	peak := v[0]
	dipped := false
	for _, x := range v[1:] {
		switch {
		case x < peak:
			dipped = true
		case x > peak && dipped:
			return true
		}
		if x > peak {
			peak = x
		}
	}
	return false
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
