package runstate

import (
	"context"
	"strings"
	"testing"

	"impfmon/internal/core/change"
	perr "impfmon/internal/platform/errors"
	kit "impfmon/internal/platform/testkit"
	ptime "impfmon/internal/platform/time"
	"impfmon/internal/services/ingest/domain"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := New(t.TempDir(), "dashboard-states")

	st, err := r.Load(ctx)
	if err != nil || st.LastToken != nil {
		t.Fatalf("empty Load = %+v, %v", st, err)
	}

	tok := change.TokenOf([]byte("revision"))
	want := domain.RunState{LastToken: &tok, UpdatedOn: ptime.MustDay("2021-06-01")}
	if err := r.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := kit.ReadFile(t, r.Path()); got != "2021-06-01;"+string(tok)+"\n" {
		t.Fatalf("file = %q", got)
	}
	got, err := r.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LastToken == nil || *got.LastToken != tok || got.UpdatedOn != want.UpdatedOn {
		t.Fatalf("Load = %+v", got)
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"2021-06-01", "yesterday;" + string(change.TokenOf(nil)), "2021-06-01;xyz"} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("Parse(%q) should fail", in)
		} else {
			kit.MustCode(t, err, perr.ErrorCodePersistence)
		}
	}
	st, err := Parse("  \n")
	if err != nil || st.LastToken != nil {
		t.Fatalf("blank Parse = %+v, %v", st, err)
	}
}

func TestParseAcceptsUppercaseToken(t *testing.T) {
	tok := change.TokenOf([]byte("x"))
	st, err := Parse("2021-06-01;" + strings.ToUpper(string(tok)))
	if err != nil || *st.LastToken != tok {
		t.Fatalf("Parse = %+v, %v", st, err)
	}
}

func TestSaveRejectsIncompleteState(t *testing.T) {
	r := New(t.TempDir(), "x")
	kit.MustCode(t, r.Save(context.Background(), domain.RunState{}), perr.ErrorCodeInvalidArgument)
}

func TestCorruptFileIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, "x")
	kit.WriteFile(t, dir, "state/x.last", "garbage")
	_, err := r.Load(context.Background())
	kit.MustCode(t, err, perr.ErrorCodePersistence)
}
