package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"impfmon/internal/core/ledger"
	perr "impfmon/internal/platform/errors"
	pstrings "impfmon/internal/platform/strings"
	ptime "impfmon/internal/platform/time"
	"impfmon/internal/platform/validate"
	"impfmon/internal/services/ingest/domain"
	ingestmod "impfmon/internal/services/ingest/module"
	"impfmon/internal/services/render"
)

// chartFlags are shared by ingest --chart and render
type chartFlags struct {
	regions   []string
	start     string
	metric    string
	perCapita bool
	per       float64
	out       string
	title     string
}

func (f *chartFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringArrayVarP(&f.regions, "region", "r", nil, "region id, code or name to draw (repeatable; default $CORE_RENDER_REGIONS, else all ledger regions)")
	fl.StringVar(&f.start, "start", "", "first date to draw, YYYY-MM-DD")
	fl.StringVar(&f.metric, "metric", "", "metric to draw (default the first metric of the dataset)")
	fl.BoolVar(&f.perCapita, "per-capita", false, "divide by registry population")
	fl.Float64Var(&f.per, "per", 100, "per-capita scale, e.g. 100 for percent or 100000 for incidences")
	fl.StringVarP(&f.out, "out", "o", "", "output file (.svg or .png; default <data>/charts/<dataset>-<metric>.svg)")
	fl.StringVar(&f.title, "title", "", "chart title")
}

// request resolves flags against the registry and the ledger
func (f *chartFlags) request(ctx context.Context, m *ingestmod.Module, p ingestmod.Ports, defaults render.Options) (render.Request, string, error) {
	if err := validate.Var("start", f.start, "omitempty,day"); err != nil {
		return render.Request{}, "", perr.Wrap(err, perr.ErrorCodeInvalidArgument, "--start")
	}
	var start ptime.Day
	if f.start != "" {
		start, _ = ptime.ParseDay(f.start)
	}

	metric := f.metric
	if metric == "" {
		metric = m.Dataset().Format.MetricNames()[0]
	}

	var regions []string
	labels := pstrings.IfEmpty(f.regions, defaults.Regions)
	if len(labels) == 0 {
		l, err := p.History.Load(ctx)
		if err != nil {
			return render.Request{}, "", err
		}
		regions = l.Regions()
		if len(regions) == 0 {
			return render.Request{}, "", perr.NotFoundf("ledger %s is empty; run ingest first", m.LedgerPath())
		}
	}
	for _, label := range labels {
		id, err := resolveRegion(p.Registry, label)
		if err != nil {
			return render.Request{}, "", err
		}
		regions = append(regions, id)
	}
	regions = pstrings.Dedup(regions)

	out := f.out
	if out == "" {
		out = filepath.Join(m.Options().DataDir, "charts", fmt.Sprintf("%s-%s.svg", m.Dataset().Name, metric))
	}
	return render.Request{
		Regions:   regions,
		Metric:    metric,
		Start:     start,
		PerCapita: f.perCapita,
		Per:       f.per,
		Title:     f.title,
	}, out, nil
}

func resolveRegion(reg domain.Registry, label string) (string, error) {
	if r, ok := reg.Resolve(label); ok {
		return r.ID, nil
	}
	if s := reg.Suggest(label); s != "" {
		return "", perr.InvalidArgf("unknown region %q (did you mean %q?)", label, s)
	}
	return "", perr.InvalidArgf("unknown region %q", label)
}

func (a *app) drawChart(ctx context.Context, f *chartFlags, m *ingestmod.Module, p ingestmod.Ports) (string, error) {
	opts := render.FromConfig(a.deps.Cfg)
	req, out, err := f.request(ctx, m, p, opts)
	if err != nil {
		return "", err
	}
	r := render.New(opts, p.Registry)
	if err := r.WriteFile(ctx, p.History, req, out); err != nil {
		return "", err
	}
	return out, nil
}

func newRenderCmd(a *app) *cobra.Command {
	f := &chartFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Draws a chart from the local ledger without fetching",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, p, err := a.ingest()
			if err != nil {
				return err
			}
			out, err := a.drawChart(cmd.Context(), f, m, p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

// conflictTable prints every rejected value of a merge or monotonicity failure
func conflictTable(cmd *cobra.Command, err error) {
	var me *ledger.MergeError
	var mono *ledger.MonotonicError
	switch {
	case errors.As(err, &me):
		t := newTable(cmd.OutOrStdout())
		t.SetTitle("merge conflicts (rerun with --accept-corrections to overwrite)")
		t.AppendHeader(tableRow("Date", "Region", "Metric", "Stored", "Incoming"))
		for _, c := range me.Conflicts {
			t.AppendRow(tableRow(c.Date.String(), c.Region, c.Metric, ledger.FormatValue(c.Old), ledger.FormatValue(c.New)))
		}
		t.Render()
	case errors.As(err, &mono):
		t := newTable(cmd.OutOrStdout())
		t.SetTitle("cumulative metrics decreased")
		t.AppendHeader(tableRow("Region", "Metric", "Earlier", "Value", "Later", "Value"))
		for _, v := range mono.Violations {
			t.AppendRow(tableRow(v.Region, v.Metric, v.PrevDate.String(), ledger.FormatValue(v.Prev), v.Date.String(), ledger.FormatValue(v.Value)))
		}
		t.Render()
	}
}
