package scoring

import (
	"context"

	model "github.com/okian/trainage/internal/domain/model"
	"github.com/okian/trainage/pkg/logger"
)

// BaseResult is the outcome of running the onboarding pipeline on a profile.
type BaseResult struct {
	Factors          model.TrainingFactors
	EffectiveMonths  float64
	FormulaTier      model.Tier
	Tier             model.Tier
	StrengthAdjusted bool
}

// Trigger names the history trigger for recording this result.
func (r BaseResult) Trigger() model.HistoryTrigger {
	if r.StrengthAdjusted {
		return model.TriggerPerformanceData
	}
	return model.TriggerInitialOnboarding
}

// SupportingData is the evidence snapshot stored alongside the history entry.
func (r BaseResult) SupportingData() map[string]any {
	data := map[string]any{
		"effective_months":      r.EffectiveMonths,
		"formula_tier":          r.FormulaTier.String(),
		"technical_proficiency": r.Factors.TechnicalProficiency,
		"strength_adjusted":     r.StrengthAdjusted,
	}
	if r.Factors.Strength != nil {
		if avg, ok := r.Factors.Strength.Average(); ok {
			data["strength_ratio_avg"] = avg
		}
	}
	return data
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for classification traces.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// Pipeline runs the base classification chain.
type Pipeline struct {
	log logger.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{log: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run classifies a profile.
func (p *Pipeline) Run(ctx context.Context, profile model.Profile) BaseResult {
	f := ExtractFactors(profile)
	months := EffectiveMonths(f)
	formula := Classify(months)
	tier, adjusted := ValidateStrength(formula, f)

	p.log.Debug(ctx, "base classification",
		logger.UserID(profile.UserID),
		logger.Float64("effective_months", months),
		logger.String("formula_tier", formula.String()),
		logger.String("tier", tier.String()),
		logger.Bool("strength_adjusted", adjusted),
	)

	return BaseResult{
		Factors:          f,
		EffectiveMonths:  months,
		FormulaTier:      formula,
		Tier:             tier,
		StrengthAdjusted: adjusted,
	}
}
