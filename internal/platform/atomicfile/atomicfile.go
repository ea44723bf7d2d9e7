// Package atomicfile replaces files so readers see either the old or the new
// content, never a truncated mix. Content is written to a sibling temp file,
// fsynced, then renamed over the target
package atomicfile

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	perr "impfmon/internal/platform/errors"
)

// seams for crash simulation in tests
var (
	rename       = os.Rename
	beforeRename = func(tmp, dst string) error { return nil }
)

// Write replaces path with whatever fn writes. On any error the previous file is
// left untouched and the temp file removed
func Write(path string, perm os.FileMode, fn func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePersistence, "create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodePersistence, "create temp file for %s", path)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = fn(bw); err != nil {
		return perr.WrapIf(err, perr.ErrorCodePersistence, "write "+path)
	}
	if err = bw.Flush(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePersistence, "flush %s", tmpName)
	}
	if err = tmp.Chmod(perm); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePersistence, "chmod %s", tmpName)
	}
	if err = tmp.Sync(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePersistence, "fsync %s", tmpName)
	}
	if err = tmp.Close(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePersistence, "close %s", tmpName)
	}
	if err = beforeRename(tmpName, path); err != nil {
		return perr.WrapIf(err, perr.ErrorCodePersistence, "replace "+path)
	}
	if err = rename(tmpName, path); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePersistence, "rename %s", tmpName)
	}
	syncDir(dir)
	return nil
}

// WriteBytes is Write for a ready buffer
func WriteBytes(path string, perm os.FileMode, b []byte) error {
	return Write(path, perm, func(w io.Writer) error {
		_, err := w.Write(b)
		return err
	})
}

// syncDir makes the rename durable where the platform allows it. Best effort
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
