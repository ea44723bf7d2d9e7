package testkit

import (
	"path/filepath"
	"testing"

	perr "impfmon/internal/platform/errors"
)

func TestMustPanic(t *testing.T) {
	t.Parallel()

	MustPanic(t, func() {
		panic("boom")
	})
}

func TestMustContain(t *testing.T) {
	t.Parallel()

	MustContain(t, "date,region,doses", "region")
}

func TestMustCode(t *testing.T) {
	t.Parallel()

	MustCode(t, perr.Newf(perr.ErrorCodeConflict, "doses differ"), perr.ErrorCodeConflict)
}

func TestWriteAndReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := WriteFile(t, dir, "state/rki.last", "2021-03-23;abc\n")
	if p != filepath.Join(dir, "state", "rki.last") {
		t.Fatalf("unexpected path %s", p)
	}
	if got := ReadFile(t, p); got != "2021-03-23;abc\n" {
		t.Fatalf("round trip = %q", got)
	}
}
