// Package render draws ledger series as an SVG line chart, optionally rasterised to PNG
package render

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"impfmon/internal/core/ledger"
	"impfmon/internal/platform/atomicfile"
	perr "impfmon/internal/platform/errors"
	"impfmon/internal/platform/logger"
	ptime "impfmon/internal/platform/time"
	"impfmon/internal/platform/validate"
	"impfmon/internal/services/ingest/domain"
)

// Populations supplies region populations for per-capita charts
type Populations interface {
	Population(id string) (int64, bool)
}

// Request selects what to draw
type Request struct {
	Regions []string `flag:"region" validate:"required,min=1,dive,region_id"`
	Metric  string   `flag:"metric" validate:"required"`
	Start   ptime.Day
	// PerCapita divides by population and multiplies by Per (default 100, i.e. percent)
	PerCapita bool
	Per       float64 `flag:"per" validate:"gte=0"`
	Title     string
}

// Series is one drawn line
type Series struct {
	Region string
	Points []ledger.Point
}

// Renderer turns ledger series into charts
type Renderer struct {
	opts Options
	pop  Populations
}

// New builds a renderer; pop may be nil when per-capita charts are never requested
func New(opts Options, pop Populations) *Renderer {
	if opts.Width <= 0 {
		opts.Width = 960
	}
	if opts.Height <= 0 {
		opts.Height = 540
	}
	return &Renderer{opts: opts, pop: pop}
}

// Collect picks the requested series out of l, scaled per capita when asked
func (r *Renderer) Collect(l *ledger.Ledger, req Request) ([]Series, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	known := false
	for _, m := range l.Metrics() {
		if m == req.Metric {
			known = true
			break
		}
	}
	if !known {
		return nil, perr.InvalidArgf("ledger has no metric %q (have %s)", req.Metric, strings.Join(l.Metrics(), ", "))
	}
	per := req.Per
	if per <= 0 {
		per = 100
	}

	out := make([]Series, 0, len(req.Regions))
	for _, id := range req.Regions {
		pts := l.Series(id, req.Metric, req.Start)
		if len(pts) == 0 {
			return nil, perr.NotFoundf("no %s values for %s since %s", req.Metric, id, startLabel(req.Start))
		}
		if req.PerCapita {
			if r.pop == nil {
				return nil, perr.InvalidArgf("per-capita chart needs region populations")
			}
			p, ok := r.pop.Population(id)
			if !ok {
				return nil, perr.InvalidArgf("region %s has no population in the registry", id)
			}
			for i := range pts {
				pts[i].Value = pts[i].Value / float64(p) * per
			}
		}
		out = append(out, Series{Region: id, Points: pts})
	}
	return out, nil
}

// SVG draws the chart for req
func (r *Renderer) SVG(l *ledger.Ledger, req Request) ([]byte, error) {
	series, err := r.Collect(l, req)
	if err != nil {
		return nil, err
	}
	title := req.Title
	if title == "" {
		title = req.Metric
		if req.PerCapita {
			title += fmt.Sprintf(" per %s inhabitants", r.format(perOrDefault(req.Per)))
		}
	}
	return r.draw(title, series), nil
}

// WriteFile renders req from hist and writes it to path. A ".png" path is
// rasterised; anything else is written as SVG
func (r *Renderer) WriteFile(ctx context.Context, hist domain.HistoryReader, req Request, path string) error {
	l, err := hist.Load(ctx)
	if err != nil {
		return err
	}
	svg, err := r.SVG(l, req)
	if err != nil {
		return err
	}
	body := svg
	if strings.EqualFold(filepath.Ext(path), ".png") {
		if body, err = rasterize(svg, r.opts.PNGWidth); err != nil {
			return err
		}
	}
	if err := atomicfile.WriteBytes(path, 0o644, body); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePersistence, "write chart %s", path)
	}
	logger.C(ctx).Info().
		Str("path", path).
		Str("metric", req.Metric).
		Strs("regions", req.Regions).
		Bool("per_capita", req.PerCapita).
		Int("bytes", len(body)).
		Msg("chart written")
	return nil
}

const (
	padLeft   = 90
	padRight  = 150
	padTop    = 50
	padBottom = 50
	yTicks    = 5
	xTicks    = 6
)

var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b",
	"#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

func (r *Renderer) draw(title string, series []Series) []byte {
	w, h := float64(r.opts.Width), float64(r.opts.Height)
	plotW, plotH := w-padLeft-padRight, h-padTop-padBottom

	first, last := series[0].Points[0].Date, series[0].Points[0].Date
	top := 0.0
	for _, s := range series {
		for _, p := range s.Points {
			if p.Date.Before(first) {
				first = p.Date
			}
			if p.Date.After(last) {
				last = p.Date
			}
			top = math.Max(top, p.Value)
		}
	}
	step := niceStep(top / yTicks)
	ceil := step * yTicks
	days := math.Max(float64(dayIndex(first, last)), 1)

	x := func(d ptime.Day) float64 { return padLeft + float64(dayIndex(first, d))/days*plotW }
	y := func(v float64) float64 { return padTop + plotH - v/ceil*plotH }

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif" font-size="12">`+"\n",
		r.opts.Width, r.opts.Height, r.opts.Width, r.opts.Height)
	fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="#ffffff"/>`+"\n")
	fmt.Fprintf(&b, `<text x="%.1f" y="%d" font-size="16" text-anchor="middle">%s</text>`+"\n", padLeft+plotW/2, padTop/2+5, escape(title))

	for i := 0; i <= yTicks; i++ {
		v := step * float64(i)
		yy := y(v)
		fmt.Fprintf(&b, `<line x1="%d" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#dddddd"/>`+"\n", padLeft, yy, padLeft+plotW, yy)
		fmt.Fprintf(&b, `<text x="%d" y="%.1f" text-anchor="end">%s</text>`+"\n", padLeft-6, yy+4, r.format(v))
	}
	n := min(xTicks, int(days)+1)
	for i := 0; i < n; i++ {
		d := first.AddDays(int(math.Round(float64(i) * days / float64(max(n-1, 1)))))
		xx := x(d)
		fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#999999"/>`+"\n", xx, padTop+plotH, xx, padTop+plotH+4)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" text-anchor="middle">%s</text>`+"\n", xx, padTop+plotH+18, d.Time().Format("02.01.06"))
	}
	fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%.1f" height="%.1f" fill="none" stroke="#333333"/>`+"\n", padLeft, padTop, plotW, plotH)

	for i, s := range series {
		color := palette[i%len(palette)]
		pts := make([]string, 0, len(s.Points))
		for _, p := range s.Points {
			pts = append(pts, fmt.Sprintf("%.1f,%.1f", x(p.Date), y(p.Value)))
		}
		fmt.Fprintf(&b, `<polyline data-region="%s" fill="none" stroke="%s" stroke-width="2" points="%s"/>`+"\n", escape(s.Region), color, strings.Join(pts, " "))
		ly := float64(padTop + 10 + i*18)
		fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="3"/>`+"\n", w-padRight+12, ly, w-padRight+32, ly, color)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f">%s</text>`+"\n", w-padRight+38, ly+4, escape(s.Region))
	}
	b.WriteString("</svg>\n")
	return b.Bytes()
}

// niceStep rounds raw up to 1, 2, 2.5 or 5 times a power of ten
func niceStep(raw float64) float64 {
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 1
	}
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if raw <= m*mag {
			return m * mag
		}
	}
	return 10 * mag
}

func dayIndex(from, to ptime.Day) int {
	return int(math.Round(to.Time().Sub(from.Time()).Hours() / 24))
}

func (r *Renderer) format(v float64) string {
	tag := language.German
	if r.opts.Lang == "en" {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

func perOrDefault(per float64) float64 {
	if per <= 0 {
		return 100
	}
	return per
}

func startLabel(d ptime.Day) string {
	if d.IsZero() {
		return "the beginning"
	}
	return d.String()
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
