// Package runstate keeps the checkpoint of the last successful run: the day it
// completed and the change token it ingested, one line "YYYY-MM-DD;<token>"
package runstate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"impfmon/internal/core/change"
	"impfmon/internal/platform/atomicfile"
	perr "impfmon/internal/platform/errors"
	ptime "impfmon/internal/platform/time"
	"impfmon/internal/services/ingest/domain"
)

// Repo implements domain.StateRepo
type Repo struct {
	path string
}

var _ domain.StateRepo = (*Repo)(nil)

// New returns the state file of dataset (<dataDir>/state/<dataset>.last)
func New(dataDir, dataset string) *Repo {
	return &Repo{path: filepath.Join(dataDir, "state", dataset+".last")}
}

// Path is the state file location
func (r *Repo) Path() string { return r.path }

// Load returns the stored state; a missing file means no previous run
func (r *Repo) Load(_ context.Context) (domain.RunState, error) {
	b, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.RunState{}, nil
	}
	if err != nil {
		return domain.RunState{}, perr.Wrapf(err, perr.ErrorCodePersistence, "read run state %s", r.path)
	}
	st, err := Parse(string(b))
	if err != nil {
		return domain.RunState{}, perr.Wrapf(err, perr.ErrorCodePersistence, "run state %s", r.path)
	}
	return st, nil
}

// Save replaces the state file
func (r *Repo) Save(ctx context.Context, st domain.RunState) error {
	if err := ctx.Err(); err != nil {
		return perr.Wrap(err, perr.ErrorCodePersistence, "save run state")
	}
	line, err := Format(st)
	if err != nil {
		return err
	}
	return atomicfile.WriteBytes(r.path, 0o644, []byte(line+"\n"))
}

// Format renders st as its one-line form
func Format(st domain.RunState) (string, error) {
	if st.LastToken == nil || !st.LastToken.Valid() {
		return "", perr.InvalidArgf("run state needs a valid token")
	}
	if st.UpdatedOn.IsZero() {
		return "", perr.InvalidArgf("run state needs a date")
	}
	return fmt.Sprintf("%s;%s", st.UpdatedOn, *st.LastToken), nil
}

// Parse reads the one-line form; an empty file is an empty state
func Parse(s string) (domain.RunState, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.RunState{}, nil
	}
	day, tok, ok := strings.Cut(s, ";")
	if !ok {
		return domain.RunState{}, perr.Persistencef("expected DATE;TOKEN, got %q", s)
	}
	d, err := ptime.ParseDay(day)
	if err != nil {
		return domain.RunState{}, perr.Wrap(err, perr.ErrorCodePersistence, "state date")
	}
	t := change.Token(strings.ToLower(strings.TrimSpace(tok)))
	if !t.Valid() {
		return domain.RunState{}, perr.Persistencef("invalid token %q", tok)
	}
	return domain.RunState{LastToken: &t, UpdatedOn: d}, nil
}
