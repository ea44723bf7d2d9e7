package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"impfmon/internal/platform/config"
	ingestmod "impfmon/internal/services/ingest/module"
)

func newDatasetsCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "Lists the built-in datasets and where they are fetched from",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(tableRow("Dataset", "Source", "Metrics", "Description"))
			for _, d := range ingestmod.Catalog(config.New()) {
				src := d.Source.URL
				if d.Source.PageURL != "" {
					src = d.Source.PageURL + " -> *" + d.Source.LinkPattern + "*"
				}
				var metrics []string
				for _, m := range d.Format.Descriptors() {
					name := m.Name
					if m.Cumulative {
						name += " (cum.)"
					}
					metrics = append(metrics, name)
				}
				t.AppendRow(tableRow(d.Name, src, strings.Join(metrics, ", "), d.Format.Description))
			}
			t.Render()
			return nil
		},
	}
}
