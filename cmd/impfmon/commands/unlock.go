package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"impfmon/internal/platform/logger"
	"impfmon/internal/services/ingest/guardrails"
)

func newUnlockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Removes a stale ingestion lock left by a crashed run",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := a.ingest()
			if err != nil {
				return err
			}
			removed, err := guardrails.Break(m.LeasePath())
			if err != nil {
				return err
			}
			if removed {
				logger.C(cmd.Context()).Warn().Str("path", m.LeasePath()).Msg("lock removed by operator")
				fmt.Fprintln(cmd.OutOrStdout(), "removed", m.LeasePath())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "not locked")
			return nil
		},
	}
}
