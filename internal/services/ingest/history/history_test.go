package history

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"impfmon/internal/core/ledger"
	"impfmon/internal/platform/atomicfile"
	perr "impfmon/internal/platform/errors"
	kit "impfmon/internal/platform/testkit"
	ptime "impfmon/internal/platform/time"
)

func sample(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, _, err := ledger.Merge(ledger.New(), []ledger.Record{
		{Region: "DE-BY", Date: ptime.MustDay("2021-06-01"), Metrics: map[string]float64{"doses": 100, "people_first": 80}},
		{Region: "DE-BE", Date: ptime.MustDay("2021-06-01"), Metrics: map[string]float64{"doses": 12.5}},
		{Region: "DE-BY", Date: ptime.MustDay("2021-05-31"), Metrics: map[string]float64{"doses": 90}},
	}, ledger.MergeOptions{Metrics: []string{"doses", "people_first"}})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	return l
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := New(t.TempDir(), "rki-quoten")
	want := sample(t)
	if err := r.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := r.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("round trip changed the ledger:\n%s", kit.ReadFile(t, r.Path()))
	}
	body := kit.ReadFile(t, r.Path())
	wantBody := "date,region,doses,people_first\n" +
		"2021-05-31,DE-BY,90,\n" +
		"2021-06-01,DE-BY,100,80\n" +
		"2021-06-01,DE-BE,12.5,\n"
	if body != wantBody {
		t.Fatalf("file body:\n%s\nwant:\n%s", body, wantBody)
	}
}

func TestLoadMissingIsEmpty(t *testing.T) {
	l, err := New(t.TempDir(), "x").Load(context.Background())
	if err != nil || l.Len() != 0 {
		t.Fatalf("Load missing = %v, %v", l, err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	cases := map[string]string{
		"header":     "day,region\n",
		"date":       "date,region,doses\n2021-13-01,DE-BY,1\n",
		"value":      "date,region,doses\n2021-06-01,DE-BY,abc\n",
		"width":      "date,region,doses\n2021-06-01,DE-BY\n",
		"duplicate":  "date,region,doses\n2021-06-01,DE-BY,1\n2021-06-01,DE-BY,2\n",
		"dup metric": "date,region,doses,doses\n",
		"no region":  "date,region,doses\n2021-06-01,,1\n",
	}
	for name, body := range cases {
		dir := t.TempDir()
		p := kit.WriteFile(t, dir, "l.csv", body)
		_, err := At(p).Load(context.Background())
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		kit.MustCode(t, err, perr.ErrorCodePersistence)
		if got := kit.ReadFile(t, p); got != body {
			t.Fatalf("%s: corrupt file was modified", name)
		}
	}
}

func TestCrashBeforeRenameKeepsOldLedger(t *testing.T) {
	ctx := context.Background()
	r := New(t.TempDir(), "rki-quoten")
	if err := r.Save(ctx, sample(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	before := kit.ReadFile(t, r.Path())

	crash := errors.New("power loss")
	kit.Swap(t, &write, func(path string, perm os.FileMode, fn func(io.Writer) error) error {
		return atomicfile.Write(path, perm, func(w io.Writer) error {
			if err := fn(w); err != nil {
				return err
			}
			return crash
		})
	})
	bigger, _, err := ledger.Merge(sample(t), []ledger.Record{
		{Region: "DE-HH", Date: ptime.MustDay("2021-06-02"), Metrics: map[string]float64{"doses": 7}},
	}, ledger.MergeOptions{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := r.Save(ctx, bigger); err == nil {
		t.Fatalf("Save should fail")
	}
	if got := kit.ReadFile(t, r.Path()); got != before {
		t.Fatalf("ledger changed after failed save:\n%s", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(r.Path()))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".part") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(t.TempDir(), "x")
	kit.MustCode(t, r.Save(ctx, sample(t)), perr.ErrorCodePersistence)
	if _, err := os.Stat(r.Path()); !os.IsNotExist(err) {
		t.Fatalf("file written despite cancelled context")
	}
}
