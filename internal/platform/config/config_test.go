package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	kit "impfmon/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	root := New()
	ing := root.Prefix("CORE_")
	if got := ing.key("DATA_DIR"); got != "CORE_DATA_DIR" {
		t.Fatalf("key() = %q, want %q", got, "CORE_DATA_DIR")
	}
	nested := ing.Prefix("INGEST_")
	if got := nested.key("RETRIES"); got != "CORE_INGEST_RETRIES" {
		t.Fatalf("nested key() = %q, want %q", got, "CORE_INGEST_RETRIES")
	}
}

func TestMayFallbacks(t *testing.T) {
	c := New().Prefix("M_")
	if got := c.MayString("MISSING", "def"); got != "def" {
		t.Fatalf("MayString default = %q", got)
	}
	if got := c.MayInt("MISSING", 9); got != 9 {
		t.Fatalf("MayInt default = %d", got)
	}
	t.Setenv("M_INT", "x")
	if got := c.MayInt("INT", 3); got != 3 {
		t.Fatalf("MayInt invalid -> default = %d", got)
	}
	t.Setenv("M_BOOL", "nope")
	if got := c.MayBool("BOOL", true); !got {
		t.Fatalf("MayBool invalid -> default expected")
	}
	t.Setenv("M_DUR", "150ms")
	if got := c.MayDuration("DUR", time.Second); got != 150*time.Millisecond {
		t.Fatalf("MayDuration = %v", got)
	}
	t.Setenv("M_DUR_BAD", "soon")
	if got := c.MayDuration("DUR_BAD", time.Minute); got != time.Minute {
		t.Fatalf("MayDuration invalid -> default = %v", got)
	}
}

func TestMayURL(t *testing.T) {
	c := New().Prefix("SRC_")
	def := "https://example.org/a.csv"
	if got := c.MayURL("MISSING", def); got != def {
		t.Fatalf("MayURL default = %q", got)
	}
	t.Setenv("SRC_OK", "http://localhost:8080/x.tsv")
	if got := c.MayURL("OK", def); got != "http://localhost:8080/x.tsv" {
		t.Fatalf("MayURL ok = %q", got)
	}
	t.Setenv("SRC_BAD", "not a url")
	if got := c.MayURL("BAD", def); got != def {
		t.Fatalf("MayURL invalid -> default = %q", got)
	}
}

func TestMayPath(t *testing.T) {
	c := New().Prefix("P_")
	t.Setenv("P_DIR", "data//ledger/../ledger/")
	if got := c.MayPath("DIR", ""); got != filepath.Clean("data/ledger") {
		t.Fatalf("MayPath = %q", got)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	t.Setenv("P_HOME", "~/impfmon")
	if got := c.MayPath("HOME", ""); got != filepath.Join(home, "impfmon") {
		t.Fatalf("MayPath home = %q", got)
	}
	if got := c.MayPath("MISSING", ""); got != "" {
		t.Fatalf("MayPath empty default = %q", got)
	}
}

func TestMayCSV(t *testing.T) {
	c := New().Prefix("CSV_")
	t.Setenv("CSV_REGIONS", " DE-BY, DE-BE , ,DE-MV ,, ")
	got := c.MayCSV("REGIONS", nil)
	want := []string{"DE-BY", "DE-BE", "DE-MV"}
	if len(got) != len(want) {
		t.Fatalf("MayCSV len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MayCSV[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	t.Setenv("CSV_EMPTY", " , ,")
	if got := c.MayCSV("EMPTY", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("MayCSV all-blank -> default, got %#v", got)
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("E_")
	if got := c.MayEnum("MISS", "json", "json", "console"); got != "json" {
		t.Fatalf("MayEnum default = %q", got)
	}
	t.Setenv("E_FMT", "Console")
	if got := c.MayEnum("FMT", "json", "json", "console"); got != "Console" {
		t.Fatalf("MayEnum allowed value = %q", got)
	}
	t.Setenv("E_BAD", "xml")
	kit.MustPanic(t, func() { _ = c.MayEnum("BAD", "json", "json", "console") })
}
