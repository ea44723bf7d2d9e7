package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"impfmon/internal/core/change"
	"impfmon/internal/core/ledger"
	"impfmon/internal/platform/logger"
	"impfmon/internal/services/ingest/domain"
)

func newIngestCmd(a *app) *cobra.Command {
	var (
		opts      domain.RunOptions
		replay    string
		chart     bool
		noRefresh bool
		f         = &chartFlags{}
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetches the dataset, merges new values into the ledger and optionally draws a chart",
		Long: "Fetches the current revision of the dataset and merges it into the local ledger.\n" +
			"Exit status: 0 updated, 2 no update, 3 transport, 4 extraction, 5 conflict, 6 persistence, 7 locked.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			m, p, err := a.ingest()
			if err != nil {
				return err
			}
			if noRefresh {
				out, err := a.drawChart(ctx, f, m, p)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}

			opts.Replay = change.Token(replay)
			res, err := p.Runner.Run(ctx, opts)
			if err != nil {
				conflictTable(cmd, err)
				return err
			}
			printOutcome(cmd, res)
			if res.Status == domain.StatusUnchanged {
				return errNoUpdate
			}
			if chart {
				out, err := a.drawChart(ctx, f, m, p)
				if err != nil {
					return err
				}
				logger.C(ctx).Info().Str("chart", out).Msg("chart updated")
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&opts.FromFile, "from-file", "", "ingest a local document instead of fetching")
	fl.StringVar(&replay, "replay", "", "re-ingest an archived revision by token or unique prefix")
	fl.BoolVar(&opts.Force, "force", false, "process the revision even when it was already ingested")
	fl.BoolVar(&opts.AcceptCorrections, "accept-corrections", false, "let conflicting published values overwrite stored ones")
	fl.BoolVar(&chart, "chart", false, "draw a chart after an update")
	fl.BoolVar(&noRefresh, "no-refresh", false, "skip fetching and only draw the chart from the local ledger")
	cmd.MarkFlagsMutuallyExclusive("from-file", "replay")
	cmd.MarkFlagsMutuallyExclusive("no-refresh", "from-file")
	cmd.MarkFlagsMutuallyExclusive("no-refresh", "replay")
	f.bind(cmd)
	return cmd
}

func printOutcome(cmd *cobra.Command, res domain.Outcome) {
	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(tableRow("Status", "Revision", "Data date", "Records", "Skipped", "Inserted", "Enriched", "Unchanged", "Corrections"))
	rep := res.Report
	t.AppendRow(tableRow(res.Status.String(), res.Token.Short(), dayOrDash(res.DataDate), res.Records, res.Skipped,
		rep.Inserted, rep.Enriched, rep.Unchanged, len(rep.Corrections)))
	t.Render()
	if len(rep.Corrections) > 0 {
		c := newTable(cmd.OutOrStdout())
		c.SetTitle("corrections applied")
		c.AppendHeader(tableRow("Date", "Region", "Metric", "Was", "Now"))
		for _, x := range rep.Corrections {
			c.AppendRow(tableRow(x.Date.String(), x.Region, x.Metric, ledger.FormatValue(x.Old), ledger.FormatValue(x.New)))
		}
		c.Render()
	}
}

func dayOrDash(d domain.Day) string {
	if d.IsZero() {
		return "-"
	}
	return d.String()
}
