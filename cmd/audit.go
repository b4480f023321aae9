package main

import (
	"context"

	service "github.com/okian/trainage/internal/app"
	"github.com/okian/trainage/pkg/logger"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit [user-id]",
	Short: "Audit one user, or sweep every user when no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := startOffline(cmd)
		if err != nil {
			return err
		}
		defer svc.Stop()

		if len(args) == 1 {
			res, err := svc.Audit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		}
		summary, err := svc.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), summary)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <user-id>",
	Short: "Print a user's classification history, most recent first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		svc, err := startOffline(cmd)
		if err != nil {
			return err
		}
		defer svc.Stop()

		entries, err := svc.History(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), entries)
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of entries")
}

// startOffline starts the service against the configured store without
// the cron sweep; the queue and workers are idle in one-shot commands.
func startOffline(cmd *cobra.Command) (*service.Service, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg.AuditSchedule = ""
	cfg.WorkerCount = 1
	svc := service.New(service.WithConfig(cfg), service.WithLogger(logger.Get()))
	if err := svc.Start(context.WithoutCancel(cmd.Context())); err != nil {
		return nil, err
	}
	return svc, nil
}
