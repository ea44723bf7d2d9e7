package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"impfmon/internal/core/ledger"
	"impfmon/internal/services/ingest/domain"
)

func newRegionsCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "Lists the regions in the ledger, or with --all every region the registry knows",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, p, err := a.ingest()
			if err != nil {
				return err
			}
			if all {
				registryTable(cmd, p.Registry.Regions())
				return nil
			}
			l, err := p.History.Load(cmd.Context())
			if err != nil {
				return err
			}
			ledgerRegionsTable(cmd, l, p.Registry)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list the registry instead of the ledger")
	return cmd
}

func registryTable(cmd *cobra.Command, regions []domain.Region) {
	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(tableRow("ID", "Name", "Kind", "Population", "Ignored", "Aliases"))
	for _, r := range regions {
		pop := "-"
		if r.Population > 0 {
			pop = strconv.FormatInt(r.Population, 10)
		}
		ignored := ""
		if r.Ignored {
			ignored = "yes"
		}
		t.AppendRow(tableRow(r.ID, r.Name, string(r.Kind), pop, ignored, strings.Join(r.Aliases, ", ")))
	}
	t.Render()
}

func ledgerRegionsTable(cmd *cobra.Command, l *ledger.Ledger, reg domain.Registry) {
	metrics := l.Metrics()
	t := newTable(cmd.OutOrStdout())
	header := tableRow("ID", "Name", "First", "Last")
	for _, m := range metrics {
		header = append(header, m)
	}
	t.AppendHeader(header)

	type span struct {
		first, last ledger.Record
	}
	spans := map[string]*span{}
	for _, r := range l.Rows() {
		s, ok := spans[r.Region]
		if !ok {
			spans[r.Region] = &span{first: r, last: r}
			continue
		}
		s.last = r
	}
	for _, id := range l.Regions() {
		s := spans[id]
		name := ""
		if r, ok := reg.Lookup(id); ok {
			name = r.Name
		}
		row := tableRow(id, name, s.first.Date.String(), s.last.Date.String())
		for _, m := range metrics {
			if v, ok := s.last.Metrics[m]; ok {
				row = append(row, ledger.FormatValue(v))
			} else {
				row = append(row, "")
			}
		}
		t.AppendRow(row)
	}
	t.SetCaption("%d rows, %d regions", l.Len(), len(spans))
	t.Render()
}
