package confidence

import (
	model "github.com/okian/trainage/internal/domain/model"
	"github.com/okian/trainage/internal/domain/scoring"
)

// ReasonProgressiveUpdate marks proposals from the evidence-weighted update.
const ReasonProgressiveUpdate = "progressive_update"

// Proposal is a suggested tier change. It is applied only when the
// Thresholds gate clears.
type Proposal struct {
	From       model.Tier
	To         model.Tier
	Confidence float64
	Reason     string
	Adjustment float64
	Months     float64
}

// SupportingData is the evidence snapshot stored with an applied proposal.
func (p Proposal) SupportingData(signalCount int) map[string]any {
	data := map[string]any{
		"reason":        p.Reason,
		"previous_tier": p.From.String(),
		"confidence":    p.Confidence,
		"signals":       signalCount,
	}
	if p.Reason == ReasonProgressiveUpdate {
		data["adjustment"] = p.Adjustment
		data["months"] = p.Months
	}
	return data
}

func push(t model.Tier) float64 {
	switch t {
	case model.Beginner:
		return -0.5
	case model.Intermediate:
		return 0.2
	case model.Advanced, model.HighlyAdvanced:
		return 0.8
	default:
		return 0
	}
}

// Adjuster proposes tier changes from the accumulated evidence once enough
// fresh signals have arrived.
type Adjuster struct {
	th Thresholds
}

// NewAdjuster creates an adjuster.
func NewAdjuster(th Thresholds) *Adjuster {
	return &Adjuster{th: th}
}

// Propose computes the evidence-weighted tier for current.
//
// fresh is the number of signals recorded by the current run and must reach
// MinFreshSignals. The weight, the adjustment and the proposal confidence are
// computed over evidence, the signals inside the evidence window, so
// consistent behavior keeps building up across audits.
// ok is false when the evidence is too thin or the tier would not change.
func (a *Adjuster) Propose(current model.Tier, evidence []model.BehavioralSignal, fresh int) (Proposal, bool) {
	if fresh < a.th.MinFreshSignals {
		return Proposal{}, false
	}
	var weight, adjustment float64
	for _, s := range evidence {
		if !s.Indicator.IsReal() {
			continue
		}
		weight += s.Confidence
		adjustment += s.Confidence * push(s.Indicator)
	}
	if weight < a.th.MinAdjustmentWeight {
		return Proposal{}, false
	}

	months := scoring.RepresentativeMonths(current) + adjustment*a.th.DampingFactor
	proposed := scoring.Classify(months)
	if proposed == current {
		return Proposal{}, false
	}

	return Proposal{
		From:       current,
		To:         proposed,
		Confidence: Evaluate(evidence, proposed).Score,
		Reason:     ReasonProgressiveUpdate,
		Adjustment: adjustment,
		Months:     months,
	}, true
}
