package guardrails

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	perr "impfmon/internal/platform/errors"
	"impfmon/internal/platform/logger"
)

// ErrLeaseHeld signals another invocation is working on the same dataset
var ErrLeaseHeld = perr.New(perr.ErrorCodeLocked, "ingest: dataset lease already held")

// now is the clock seam for lease stamps
var now = time.Now

// Lease is an exclusive claim on one dataset, backed by a lock file created with O_EXCL
type Lease struct {
	path string
}

// LeasePath returns the lock file of dataset under dataDir
func LeasePath(dataDir, dataset string) string {
	return filepath.Join(dataDir, "state", dataset+".lock")
}

// Acquire claims the lock file at path. A present file means the lease is held,
// even when it is stale; stale locks are removed by the operator (impfmon unlock)
func Acquire(ctx context.Context, path string) (*Lease, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodePersistence, "create lock directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		holder, _ := os.ReadFile(path)
		return nil, perr.Wrapf(ErrLeaseHeld, perr.ErrorCodeLocked, "%s held by %s", path, strings.TrimSpace(string(holder)))
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodePersistence, "create lock %s", path)
	}
	stamp := fmt.Sprintf("pid=%d run=%s at=%s\n", os.Getpid(), logger.RunID(ctx), now().UTC().Format(time.RFC3339))
	_, werr := f.WriteString(stamp)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(path)
		return nil, perr.Wrapf(err, perr.ErrorCodePersistence, "write lock %s", path)
	}
	return &Lease{path: path}, nil
}

// Release removes the lock file. Safe to call more than once
func (l *Lease) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	err := os.Remove(l.path)
	l.path = ""
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return perr.Wrap(err, perr.ErrorCodePersistence, "release lock")
	}
	return nil
}

// Break removes a stale lock file left by a crashed run
func Break(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, perr.Wrapf(err, perr.ErrorCodePersistence, "remove lock %s", path)
	}
	return true, nil
}

// WithLease runs do while holding the lease at path
func WithLease(ctx context.Context, path string, do func(context.Context) error) (err error) {
	l, err := Acquire(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := l.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return do(ctx)
}
