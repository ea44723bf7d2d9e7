package render

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"impfmon/internal/core/ledger"
	"impfmon/internal/platform/config"
	perr "impfmon/internal/platform/errors"
	kit "impfmon/internal/platform/testkit"
	ptime "impfmon/internal/platform/time"
)

type pops map[string]int64

func (p pops) Population(id string) (int64, bool) {
	v, ok := p[id]
	return v, ok
}

type memHistory struct{ l *ledger.Ledger }

func (m memHistory) Load(context.Context) (*ledger.Ledger, error) { return m.l, nil }

func sample(t *testing.T) *ledger.Ledger {
	t.Helper()
	rec := func(d, region string, doses float64) ledger.Record {
		return ledger.Record{Date: ptime.MustDay(d), Region: region, Metrics: map[string]float64{"doses": doses}}
	}
	l, _, err := ledger.Merge(ledger.New(), []ledger.Record{
		rec("2021-06-01", "DE-BY", 1000),
		rec("2021-06-01", "DE-HB", 200),
		rec("2021-06-02", "DE-BY", 1500),
		rec("2021-06-03", "DE-BY", 2500),
		rec("2021-06-03", "DE-HB", 400),
	}, ledger.MergeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestCollectPerCapita(t *testing.T) {
	r := New(Options{}, pops{"DE-BY": 10000, "DE-HB": 1000})
	got, err := r.Collect(sample(t), Request{
		Regions:   []string{"DE-BY", "DE-HB"},
		Metric:    "doses",
		Start:     ptime.MustDay("2021-06-02"),
		PerCapita: true,
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := []Series{
		{Region: "DE-BY", Points: []ledger.Point{
			{Date: ptime.MustDay("2021-06-02"), Value: 15},
			{Date: ptime.MustDay("2021-06-03"), Value: 25},
		}},
		{Region: "DE-HB", Points: []ledger.Point{
			{Date: ptime.MustDay("2021-06-03"), Value: 40},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectErrors(t *testing.T) {
	l := sample(t)
	cases := []struct {
		name string
		r    *Renderer
		req  Request
		code perr.ErrorCode
	}{
		{"no regions", New(Options{}, nil), Request{Metric: "doses"}, perr.ErrorCodeValidation},
		{"unknown metric", New(Options{}, nil), Request{Regions: []string{"DE-BY"}, Metric: "cases"}, perr.ErrorCodeInvalidArgument},
		{"no data", New(Options{}, nil), Request{Regions: []string{"DE-BE"}, Metric: "doses"}, perr.ErrorCodeNotFound},
		{"no populations", New(Options{}, nil), Request{Regions: []string{"DE-BY"}, Metric: "doses", PerCapita: true}, perr.ErrorCodeInvalidArgument},
		{"missing population", New(Options{}, pops{}), Request{Regions: []string{"DE-BY"}, Metric: "doses", PerCapita: true}, perr.ErrorCodeInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.r.Collect(l, tc.req)
			kit.MustCode(t, err, tc.code)
		})
	}
}

func TestSVG(t *testing.T) {
	r := New(Options{Width: 800, Height: 400, Lang: "de"}, nil)
	svg, err := r.SVG(sample(t), Request{Regions: []string{"DE-BY", "DE-HB"}, Metric: "doses", Title: "Impfungen <BY & HB>"})
	if err != nil {
		t.Fatalf("SVG: %v", err)
	}
	s := string(svg)
	kit.MustContain(t, s, `width="800" height="400"`)
	kit.MustContain(t, s, "Impfungen &lt;BY &amp; HB&gt;")
	kit.MustContain(t, s, `data-region="DE-BY"`)
	kit.MustContain(t, s, `data-region="DE-HB"`)
	kit.MustContain(t, s, ">2.500<")
	kit.MustContain(t, s, ">01.06.21<")
	if n := strings.Count(s, "<polyline"); n != 2 {
		t.Fatalf("polylines = %d, want 2", n)
	}
}

func TestNiceStep(t *testing.T) {
	cases := map[float64]float64{0: 1, 0.3: 0.5, 1: 1, 1.2: 2, 2.2: 2.5, 3: 5, 7: 10, 420: 500, 1800: 2000}
	for in, want := range cases {
		if got := niceStep(in); got != want {
			t.Errorf("niceStep(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestWriteFileSVG(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "charts", "doses.svg")
	r := New(FromConfig(config.New()), nil)
	err := r.WriteFile(context.Background(), memHistory{sample(t)}, Request{Regions: []string{"DE-BY"}, Metric: "doses"}, out)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	body := kit.ReadFile(t, out)
	if !strings.HasPrefix(body, "<svg") {
		t.Fatalf("not an svg: %.40q", body)
	}
	if left, _ := filepath.Glob(filepath.Join(dir, "charts", "*.part")); len(left) != 0 {
		t.Fatalf("temp files left behind: %v", left)
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("CORE_RENDER_WIDTH", "10")
	t.Setenv("CORE_RENDER_LANG", "en")
	t.Setenv("CORE_RENDER_REGIONS", "Bayern, DE-BE,")
	o := FromConfig(config.New())
	if o.Width != 320 || o.Height != 540 || o.Lang != "en" {
		t.Fatalf("options = %+v", o)
	}
	if diff := cmp.Diff([]string{"Bayern", "DE-BE"}, o.Regions); diff != "" {
		t.Fatalf("regions (-want +got):\n%s", diff)
	}
	t.Setenv("CORE_RENDER_LANG", "fr")
	kit.MustPanic(t, func() { _ = FromConfig(config.New()) })
}
