package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	perr "impfmon/internal/platform/errors"
	pstrings "impfmon/internal/platform/strings"
)

func newArchiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Lists archived source revisions, newest first (tokens for ingest --replay)",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, p, err := a.ingest()
			if err != nil {
				return err
			}
			if p.Archive == nil {
				return perr.InvalidArgf("the archive is disabled (CORE_INGEST_ARCHIVE=false)")
			}
			entries, err := p.Archive.List()
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(tableRow("Token", "Fetched", "As of", "Bytes", "URL"))
			for _, e := range entries {
				t.AppendRow(tableRow(e.Token.Short(), e.FetchedAt.Format(time.RFC3339), e.AsOf.String(), strconv.FormatInt(e.Size, 10), pstrings.Ellipsis(e.URL, 72)))
			}
			t.SetCaption("%d revisions in %s", len(entries), p.Archive.Dir())
			t.Render()
			return nil
		},
	}
}
