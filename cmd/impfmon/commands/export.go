package commands

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"impfmon/internal/adapters/tabular"
	"impfmon/internal/core/ledger"
	"impfmon/internal/platform/atomicfile"
	perr "impfmon/internal/platform/errors"
	"impfmon/internal/services/ingest/history"
)

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Writes the ledger as .xlsx or .csv (\"-\" for CSV on stdout)",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, p, err := a.ingest()
			if err != nil {
				return err
			}
			l, err := p.History.Load(cmd.Context())
			if err != nil {
				return err
			}
			if out == "-" {
				return history.Encode(cmd.OutOrStdout(), l)
			}
			if out == "" {
				out = filepath.Join(m.Options().DataDir, m.Dataset().Name+".xlsx")
			}
			var buf bytes.Buffer
			switch strings.ToLower(filepath.Ext(out)) {
			case ".xlsx":
				err = tabular.WriteXLSX(&buf, ledgerTable(m.Dataset().Name, l))
			case ".csv":
				err = history.Encode(&buf, l)
			default:
				return perr.InvalidArgf("--out must end in .xlsx or .csv, got %q", out)
			}
			if err != nil {
				return err
			}
			if err := atomicfile.WriteBytes(out, 0o644, buf.Bytes()); err != nil {
				return perr.Wrapf(err, perr.ErrorCodePersistence, "write %s", out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <data>/<dataset>.xlsx)")
	return cmd
}

// ledgerTable lays l out like the ledger CSV: date, region, one column per metric
func ledgerTable(name string, l *ledger.Ledger) tabular.Table {
	metrics := l.Metrics()
	rows := [][]string{append([]string{"date", "region"}, metrics...)}
	numeric := [][]bool{nil}
	for _, r := range l.Rows() {
		row := []string{r.Date.String(), r.Region}
		typed := make([]bool, 2, 2+len(metrics))
		for _, m := range metrics {
			v, ok := r.Metrics[m]
			if ok {
				row = append(row, ledger.FormatValue(v))
			} else {
				row = append(row, "")
			}
			typed = append(typed, ok)
		}
		rows = append(rows, row)
		numeric = append(numeric, typed)
	}
	return tabular.Table{Name: name, Rows: rows, Numeric: numeric}
}
