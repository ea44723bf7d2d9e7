// Package history persists the ledger of one dataset as a CSV file
// (date,region,<metrics...>). Saves replace the file atomically
package history

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"impfmon/internal/core/ledger"
	"impfmon/internal/platform/atomicfile"
	perr "impfmon/internal/platform/errors"
	"impfmon/internal/platform/logger"
	ptime "impfmon/internal/platform/time"
	"impfmon/internal/services/ingest/domain"
)

// write is the atomic replace seam
var write = atomicfile.Write

// Repo implements domain.LedgerRepo on a CSV file
type Repo struct {
	path string
}

var _ domain.LedgerRepo = (*Repo)(nil)

// New returns the repo for dataset under dataDir (<dataDir>/ledger/<dataset>.csv)
func New(dataDir, dataset string) *Repo {
	return &Repo{path: filepath.Join(dataDir, "ledger", dataset+".csv")}
}

// At returns a repo for an explicit file path
func At(path string) *Repo { return &Repo{path: path} }

// Path is the ledger file location
func (r *Repo) Path() string { return r.path }

// Load reads the ledger. A missing file is an empty ledger; anything unreadable
// is a Persistence error and never silently replaced
func (r *Repo) Load(ctx context.Context) (*ledger.Ledger, error) {
	b, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		logger.C(ctx).Debug().Str("path", r.path).Msg("no ledger yet")
		return ledger.New(), nil
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodePersistence, "read ledger %s", r.path)
	}
	l, err := Decode(bytes.NewReader(b))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodePersistence, "ledger %s", r.path)
	}
	return l, nil
}

// Save replaces the ledger file with l
func (r *Repo) Save(ctx context.Context, l *ledger.Ledger) error {
	if err := ctx.Err(); err != nil {
		return perr.Wrap(err, perr.ErrorCodePersistence, "save ledger")
	}
	if err := write(r.path, 0o644, func(w io.Writer) error { return Encode(w, l) }); err != nil {
		return err
	}
	logger.C(ctx).Debug().Str("path", r.path).Int("rows", l.Len()).Msg("ledger saved")
	return nil
}

// Encode writes l as CSV: header date,region,metrics...; absent values are empty
func Encode(w io.Writer, l *ledger.Ledger) error {
	metrics := l.Metrics()
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"date", "region"}, metrics...)); err != nil {
		return err
	}
	line := make([]string, 2+len(metrics))
	for _, row := range l.Rows() {
		line[0], line[1] = row.Date.String(), row.Region
		for i, m := range metrics {
			line[2+i] = ""
			if v, ok := row.Metrics[m]; ok {
				line[2+i] = ledger.FormatValue(v)
			}
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode parses what Encode writes
func Decode(rd io.Reader) (*ledger.Ledger, error) {
	cr := csv.NewReader(rd)
	cr.ReuseRecord = false
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ledger.New(), nil
	}
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodePersistence, "header")
	}
	if len(header) < 2 || header[0] != "date" || header[1] != "region" {
		return nil, perr.Persistencef("header must start with date,region, got %q", strings.Join(header, ","))
	}
	metrics := header[2:]
	seen := map[string]bool{}
	for _, m := range metrics {
		if m == "" || seen[m] {
			return nil, perr.Persistencef("invalid metric column %q", m)
		}
		seen[m] = true
	}

	var rows []ledger.Record
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodePersistence, "corrupt row")
		}
		line, _ := cr.FieldPos(0)
		d, err := ptime.ParseDay(rec[0])
		if err != nil {
			return nil, perr.Persistencef("line %d: %v", line, err)
		}
		if rec[1] == "" {
			return nil, perr.Persistencef("line %d: empty region", line)
		}
		row := ledger.Record{Region: rec[1], Date: d, Metrics: map[string]float64{}}
		for i, m := range metrics {
			s := rec[2+i]
			if s == "" {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, perr.Persistencef("line %d: %s value %q is not a number", line, m, s)
			}
			row.Metrics[m] = v
		}
		rows = append(rows, row)
	}
	l, dup, ok := ledger.FromRecords(metrics, rows)
	if !ok {
		return nil, perr.Persistencef("duplicate row %s %s", dup.Date, dup.Region)
	}
	return l, nil
}
