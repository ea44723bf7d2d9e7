package modkit

import (
	"testing"

	"impfmon/internal/platform/logger"
)

func TestDeps_ZeroValueLogger(t *testing.T) {
	t.Parallel()
	var d Deps
	if d.Logger() == nil {
		t.Fatal("zero-value Deps must still yield a logger")
	}
}

func TestDeps_ExplicitLogger(t *testing.T) {
	t.Parallel()
	l := logger.Named("test")
	d := Deps{Log: l}
	if d.Logger() != l {
		t.Fatal("explicit logger not returned")
	}
}
