package main

import (
	"github.com/okian/trainage/internal/loadgen"
	"github.com/spf13/cobra"
)

var loadgenCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Drive a running service with synthetic trainees and verify their tiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadgen.DefaultConfig()
		f := cmd.Flags()
		cfg.BaseURL, _ = f.GetString("url")
		cfg.Users, _ = f.GetInt("users")
		cfg.WorkoutsPerUser, _ = f.GetInt("workouts")
		cfg.Workers, _ = f.GetInt("workers")
		cfg.Timeout, _ = f.GetDuration("timeout")
		cfg.DuplicatePercent, _ = f.GetInt("duplicates")
		cfg.Settle, _ = f.GetDuration("settle")
		cfg.Audit, _ = f.GetBool("audit")
		cfg.OutputFile, _ = f.GetString("output")

		_, err := loadgen.Run(cmd.Context(), cfg)
		return err
	},
}

func init() {
	d := loadgen.DefaultConfig()
	f := loadgenCmd.Flags()
	f.String("url", d.BaseURL, "Base URL of the service")
	f.Int("users", d.Users, "Number of synthetic trainees")
	f.Int("workouts", d.WorkoutsPerUser, "Workouts logged per trainee")
	f.Int("workers", d.Workers, "Concurrent HTTP requests")
	f.Duration("timeout", d.Timeout, "HTTP request timeout")
	f.Int("duplicates", d.DuplicatePercent, "Percent of workouts re-sent to exercise dedupe")
	f.Duration("settle", d.Settle, "Wait between logging workouts and reading tiers")
	f.Bool("audit", false, "Trigger a manual audit per trainee before reading tiers")
	f.String("output", "", "Write the generated trainees to this JSON file")
}
