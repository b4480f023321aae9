package confidence

// Thresholds are the tunable heuristics of the update path.
type Thresholds struct {
	// AutoApplyConfidence is the minimum proposal confidence that changes a tier.
	AutoApplyConfidence float64
	// MinAdjustmentWeight is the minimum summed confidence of real-tier evidence.
	MinAdjustmentWeight float64
	// MinFreshSignals is the minimum count of signals a run must record
	// before the update is attempted.
	MinFreshSignals int
	// DampingFactor scales the adjustment into months.
	DampingFactor float64
}

// DefaultThresholds returns the stock heuristic values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AutoApplyConfidence: 0.7,
		MinAdjustmentWeight: 2.0,
		MinFreshSignals:     3,
		DampingFactor:       6,
	}
}

// Clears reports whether a proposal is confident enough to apply.
func (t Thresholds) Clears(p Proposal) bool {
	return p.Confidence >= t.AutoApplyConfidence
}
