package ledger

import (
	"fmt"

	perr "impfmon/internal/platform/errors"
	ptime "impfmon/internal/platform/time"
)

// Violation is a cumulative metric that went down between two dates
type Violation struct {
	Region   string
	Metric   string
	PrevDate ptime.Day
	Prev     float64
	Date     ptime.Day
	Value    float64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s fell from %s (%s) to %s (%s)",
		v.Region, v.Metric, FormatValue(v.Prev), v.PrevDate, FormatValue(v.Value), v.Date)
}

// MonotonicError reports cumulative metrics that decrease over time
type MonotonicError struct {
	Violations []Violation
}

func (e *MonotonicError) Error() string {
	if len(e.Violations) == 1 {
		return "cumulative metric decreased: " + e.Violations[0].String()
	}
	return fmt.Sprintf("cumulative metrics decreased in %d places, first %s", len(e.Violations), e.Violations[0])
}

// Code classifies monotonicity failures like merge conflicts: an operator decides
func (e *MonotonicError) Code() perr.ErrorCode { return perr.ErrorCodeConflict }

// CheckMonotonic walks each region's rows in date order and reports every place a
// metric from metrics decreases. A nil regions slice checks every region.
// Rows missing the metric are skipped
func CheckMonotonic(l *Ledger, metrics, regions []string) []Violation {
	if l == nil || len(metrics) == 0 {
		return nil
	}
	if regions == nil {
		regions = l.Regions()
	}
	want := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		want[r] = struct{}{}
	}

	type last struct {
		date ptime.Day
		v    float64
	}
	seen := map[string]map[string]last{}
	var out []Violation
	for _, row := range l.rows {
		if _, ok := want[row.Region]; !ok {
			continue
		}
		byMetric := seen[row.Region]
		if byMetric == nil {
			byMetric = map[string]last{}
			seen[row.Region] = byMetric
		}
		for _, m := range metrics {
			v, ok := row.Metrics[m]
			if !ok {
				continue
			}
			if p, had := byMetric[m]; had && v < p.v {
				out = append(out, Violation{Region: row.Region, Metric: m, PrevDate: p.date, Prev: p.v, Date: row.Date, Value: v})
			}
			byMetric[m] = last{date: row.Date, v: v}
		}
	}
	return out
}
