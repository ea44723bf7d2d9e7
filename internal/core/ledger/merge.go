package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	perr "impfmon/internal/platform/errors"
	ptime "impfmon/internal/platform/time"
)

// MergeOptions tunes a merge
type MergeOptions struct {
	// Metrics is the preferred order for metric columns the ledger does not have yet
	Metrics []string

	// AcceptCorrections replaces conflicting stored values instead of rejecting the
	// batch. Every replacement is reported in Report.Corrections
	AcceptCorrections bool
}

// Conflict is an incoming value that disagrees with the stored one
type Conflict struct {
	Date   ptime.Day
	Region string
	Metric string
	Old    float64
	New    float64
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s %s %s: stored %s, incoming %s", c.Date, c.Region, c.Metric, FormatValue(c.Old), FormatValue(c.New))
}

// Report summarises what a merge did
type Report struct {
	Inserted    int
	Enriched    int
	Unchanged   int
	Corrections []Conflict
	NewMetrics  []string
	// Touched lists regions whose rows were inserted or changed, in first-touch order
	Touched []string
}

// Changed reports whether the merge altered the ledger
func (r Report) Changed() bool {
	return r.Inserted > 0 || r.Enriched > 0 || len(r.Corrections) > 0
}

// MergeError rejects a whole batch; it lists every conflict, not just the first
type MergeError struct {
	Conflicts []Conflict
}

func (e *MergeError) Error() string {
	if len(e.Conflicts) == 0 {
		return "merge rejected"
	}
	if len(e.Conflicts) == 1 {
		return "merge conflict: " + e.Conflicts[0].String()
	}
	return fmt.Sprintf("merge rejected: %d conflicts, first %s", len(e.Conflicts), e.Conflicts[0])
}

// Code classifies merge errors for the exit status
func (e *MergeError) Code() perr.ErrorCode { return perr.ErrorCodeConflict }

// Merge folds incoming into existing and returns the new ledger. existing is never
// modified. When any conflict is found (and corrections are not accepted) the
// original ledger is returned together with a *MergeError and no row changes
func Merge(existing *Ledger, incoming []Record, opts MergeOptions) (*Ledger, Report, error) {
	if existing == nil {
		existing = New()
	}
	for _, rec := range incoming {
		if err := validRecord(rec); err != nil {
			return existing, Report{}, err
		}
	}

	next := existing.Clone()
	var (
		rep       Report
		conflicts []Conflict
		touched   = map[string]struct{}{}
	)
	touch := func(region string) {
		if _, ok := touched[region]; !ok {
			touched[region] = struct{}{}
			rep.Touched = append(rep.Touched, region)
		}
	}

	before := len(next.metrics)
	for _, m := range opts.Metrics {
		if hasAnyMetric(incoming, m) {
			next.addMetric(m)
		}
	}

	for _, rec := range incoming {
		names := rec.MetricNames()
		for _, m := range names {
			next.addMetric(m)
		}

		i, ok := next.index[rec.Key()]
		if !ok {
			next.index[rec.Key()] = len(next.rows)
			next.rows = append(next.rows, rec.Clone())
			rep.Inserted++
			touch(rec.Region)
			continue
		}

		row := next.rows[i]
		filled, corrected := false, false
		for _, m := range names {
			nv := rec.Metrics[m]
			ov, has := row.Metrics[m]
			switch {
			case !has:
				row.Metrics[m] = nv
				filled = true
			case sameBits(ov, nv):
			default:
				c := Conflict{Date: rec.Date, Region: rec.Region, Metric: m, Old: ov, New: nv}
				if !opts.AcceptCorrections {
					conflicts = append(conflicts, c)
					continue
				}
				row.Metrics[m] = nv
				rep.Corrections = append(rep.Corrections, c)
				corrected = true
			}
		}
		switch {
		case filled:
			rep.Enriched++
			touch(rec.Region)
		case corrected:
			touch(rec.Region)
		default:
			rep.Unchanged++
		}
	}

	if len(conflicts) > 0 {
		return existing, Report{}, &MergeError{Conflicts: conflicts}
	}

	rep.NewMetrics = append(rep.NewMetrics, next.metrics[before:]...)
	next.reorder()
	return next, rep, nil
}

func validRecord(r Record) error {
	if strings.TrimSpace(r.Region) == "" || r.Date.IsZero() {
		return perr.InvalidArgf("record without region or date: %+v", r)
	}
	for m, v := range r.Metrics {
		if m == "" {
			return perr.InvalidArgf("record %s %s has an unnamed metric", r.Date, r.Region)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return perr.InvalidArgf("record %s %s metric %s has invalid value %v", r.Date, r.Region, m, v)
		}
	}
	return nil
}

func hasAnyMetric(recs []Record, m string) bool {
	for _, r := range recs {
		if _, ok := r.Metrics[m]; ok {
			return true
		}
	}
	return false
}

// FormatValue renders v in the shortest form that parses back to the same bits
func FormatValue(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
