package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"impfmon/internal/core/change"
	perr "impfmon/internal/platform/errors"
	ptime "impfmon/internal/platform/time"
	"impfmon/internal/services/ingest/domain"
)

// FileReader implements domain.LocalReader
type FileReader struct{}

var _ domain.LocalReader = FileReader{}

// ReadFile loads a local document as a revision. AsOf is the file's modification day
func (FileReader) ReadFile(ctx context.Context, path string) (domain.SourceRevision, error) {
	if err := ctx.Err(); err != nil {
		return domain.SourceRevision{}, perr.Transport(err, "read "+path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.SourceRevision{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "path %s", path)
	}
	fi, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return domain.SourceRevision{}, perr.NotFoundf("no such file %s", path)
	}
	if err != nil {
		return domain.SourceRevision{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "stat %s", path)
	}
	if fi.IsDir() {
		return domain.SourceRevision{}, perr.InvalidArgf("%s is a directory", path)
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return domain.SourceRevision{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "read %s", path)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return domain.SourceRevision{}, perr.Extractionf("%s is empty", path)
	}
	rev := change.NewRevision("file://"+filepath.ToSlash(abs), b, time.Now())
	rev.AsOf = ptime.DayOf(fi.ModTime())
	return rev, nil
}
