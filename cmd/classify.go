package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	model "github.com/okian/trainage/internal/domain/model"
	"github.com/okian/trainage/internal/domain/scoring"
	"github.com/okian/trainage/pkg/logger"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [profile.json]",
	Short: "Run the base classification on a profile file (or stdin) without touching any store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return classify(cmd, in)
	},
}

type classifyOutput struct {
	UserID          string                `json:"user_id"`
	Tier            model.Tier            `json:"tier"`
	FormulaTier     model.Tier            `json:"formula_tier"`
	EffectiveMonths float64               `json:"effective_months"`
	StrengthAdjust  bool                  `json:"strength_adjusted"`
	Trigger         model.HistoryTrigger  `json:"trigger"`
	Factors         model.TrainingFactors `json:"factors"`
}

func classify(cmd *cobra.Command, in io.Reader) error {
	var p model.Profile
	if err := json.NewDecoder(in).Decode(&p); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}
	if p.UserID == "" {
		p.UserID = "local"
	}
	if err := p.Validate(); err != nil {
		return err
	}

	res := scoring.NewPipeline(scoring.WithLogger(logger.Named("scoring"))).Run(cmd.Context(), p)
	return writeJSON(cmd.OutOrStdout(), classifyOutput{
		UserID:          p.UserID,
		Tier:            res.Tier,
		FormulaTier:     res.FormulaTier,
		EffectiveMonths: res.EffectiveMonths,
		StrengthAdjust:  res.StrengthAdjusted,
		Trigger:         res.Trigger(),
		Factors:         res.Factors,
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
