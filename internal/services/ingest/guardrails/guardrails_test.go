package guardrails

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	perr "impfmon/internal/platform/errors"
	"impfmon/internal/platform/logger"
	kit "impfmon/internal/platform/testkit"
)

func TestChildNeverExtendsParent(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ctx, c2 := ForFetch(parent, Timeouts{Fetch: time.Hour})
	defer c2()
	dl, ok := ctx.Deadline()
	pdl, _ := parent.Deadline()
	if !ok || dl.After(pdl) {
		t.Fatalf("child deadline %v after parent %v", dl, pdl)
	}
}

func TestChildTightensBudget(t *testing.T) {
	ctx, cancel := ForPersist(context.Background(), Timeouts{Persist: 10 * time.Millisecond})
	defer cancel()
	if rem := Remaining(ctx); rem <= 0 || rem > 10*time.Millisecond {
		t.Fatalf("Remaining = %v", rem)
	}
}

func TestZeroBudgetInheritsParent(t *testing.T) {
	ctx, cancel := ForExtract(context.Background(), Timeouts{})
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("zero budget should not add a deadline")
	}
	run, rc := WithRun(context.Background(), Timeouts{Run: time.Minute})
	defer rc()
	if _, ok := run.Deadline(); !ok {
		t.Fatalf("run budget missing")
	}
}

func TestLeaseExclusive(t *testing.T) {
	ctx := logger.WithRun(context.Background(), "run-7", "rki-quoten")
	p := LeasePath(t.TempDir(), "rki-quoten")
	if filepath.Base(p) != "rki-quoten.lock" {
		t.Fatalf("LeasePath = %s", p)
	}

	first, err := Acquire(ctx, p)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	_, err = Acquire(ctx, p)
	kit.MustCode(t, err, perr.ErrorCodeLocked)
	if !errors.Is(err, ErrLeaseHeld) {
		t.Fatalf("want ErrLeaseHeld, got %v", err)
	}
	kit.MustContain(t, err.Error(), "pid=")
	stamp := kit.ReadFile(t, p)
	if !regexp.MustCompile(`^pid=\d+ run=run-7 at=\S+Z\n$`).MatchString(stamp) {
		t.Fatalf("lock stamp = %q", stamp)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	second, err := Acquire(ctx, p)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = second.Release()
}

func TestWithLeaseReleasesOnError(t *testing.T) {
	p := LeasePath(t.TempDir(), "x")
	boom := errors.New("boom")
	err := WithLease(context.Background(), p, func(context.Context) error {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("lock file missing while held: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("lock file left behind")
	}
}

func TestBreakStaleLock(t *testing.T) {
	dir := t.TempDir()
	p := kit.WriteFile(t, dir, "state/x.lock", "pid=1\n")
	removed, err := Break(p)
	if err != nil || !removed {
		t.Fatalf("Break = %v, %v", removed, err)
	}
	removed, err = Break(p)
	if err != nil || removed {
		t.Fatalf("Break missing = %v, %v", removed, err)
	}
}
