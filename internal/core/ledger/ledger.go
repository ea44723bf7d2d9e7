// Package ledger is the in-memory form of the history store: one row per
// (date, region), metric columns in a stable order, rows ordered by date and
// then by insertion. Merging is pure; persistence lives elsewhere
package ledger

import (
	"math"
	"slices"
	"sort"

	ptime "impfmon/internal/platform/time"
)

// Record is one normalized observation
type Record struct {
	Region  string
	Date    ptime.Day
	Metrics map[string]float64
}

// Key identifies a ledger row
type Key struct {
	Date   ptime.Day
	Region string
}

// Key returns the row key of r
func (r Record) Key() Key { return Key{Date: r.Date, Region: r.Region} }

// Clone deep copies r
func (r Record) Clone() Record {
	m := make(map[string]float64, len(r.Metrics))
	for k, v := range r.Metrics {
		m[k] = v
	}
	return Record{Region: r.Region, Date: r.Date, Metrics: m}
}

// MetricNames returns the metric names of r sorted
func (r Record) MetricNames() []string {
	names := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Point is one value of a series
type Point struct {
	Date  ptime.Day
	Value float64
}

// Ledger holds the accumulated history. The zero value is not usable; use New
type Ledger struct {
	metrics []string
	rows    []Record
	index   map[Key]int
}

// New returns an empty ledger with the given metric columns
func New(metrics ...string) *Ledger {
	l := &Ledger{index: map[Key]int{}}
	for _, m := range metrics {
		l.addMetric(m)
	}
	return l
}

// FromRecords builds a ledger from stored rows. Rows are re-ordered by date
// keeping file order within a date; a repeated key is reported as ok=false with the offending key
func FromRecords(metrics []string, rows []Record) (*Ledger, Key, bool) {
	l := New(metrics...)
	for _, r := range rows {
		if _, dup := l.index[r.Key()]; dup {
			return nil, r.Key(), false
		}
		for _, m := range r.MetricNames() {
			l.addMetric(m)
		}
		l.index[r.Key()] = len(l.rows)
		l.rows = append(l.rows, r.Clone())
	}
	l.reorder()
	return l, Key{}, true
}

// Metrics returns the metric columns in order
func (l *Ledger) Metrics() []string { return slices.Clone(l.metrics) }

// Len returns the number of rows
func (l *Ledger) Len() int { return len(l.rows) }

// Rows returns deep copies of all rows in ledger order
func (l *Ledger) Rows() []Record {
	out := make([]Record, len(l.rows))
	for i, r := range l.rows {
		out[i] = r.Clone()
	}
	return out
}

// Get returns the row for (date, region)
func (l *Ledger) Get(date ptime.Day, region string) (Record, bool) {
	i, ok := l.index[Key{Date: date, Region: region}]
	if !ok {
		return Record{}, false
	}
	return l.rows[i].Clone(), true
}

// Value returns one metric of one row
func (l *Ledger) Value(date ptime.Day, region, metric string) (float64, bool) {
	i, ok := l.index[Key{Date: date, Region: region}]
	if !ok {
		return 0, false
	}
	v, ok := l.rows[i].Metrics[metric]
	return v, ok
}

// Clone deep copies l
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		metrics: slices.Clone(l.metrics),
		rows:    make([]Record, len(l.rows)),
		index:   make(map[Key]int, len(l.index)),
	}
	for i, r := range l.rows {
		c.rows[i] = r.Clone()
	}
	for k, v := range l.index {
		c.index[k] = v
	}
	return c
}

// Equal reports whether both ledgers hold the same columns and rows in the same
// order with bitwise identical values
func (l *Ledger) Equal(o *Ledger) bool {
	if l == nil || o == nil {
		return l == o
	}
	if !slices.Equal(l.metrics, o.metrics) || len(l.rows) != len(o.rows) {
		return false
	}
	for i := range l.rows {
		a, b := l.rows[i], o.rows[i]
		if a.Key() != b.Key() || len(a.Metrics) != len(b.Metrics) {
			return false
		}
		for k, v := range a.Metrics {
			w, ok := b.Metrics[k]
			if !ok || !sameBits(v, w) {
				return false
			}
		}
	}
	return true
}

// Regions returns region ids in order of first appearance
func (l *Ledger) Regions() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range l.rows {
		if _, ok := seen[r.Region]; ok {
			continue
		}
		seen[r.Region] = struct{}{}
		out = append(out, r.Region)
	}
	return out
}

// Absent returns the ledger regions no record of batch mentions, in ledger order.
// Their history stays; removing a region from the ledger is a manual migration
func (l *Ledger) Absent(batch []Record) []string {
	if len(batch) == 0 {
		return nil
	}
	in := make(map[string]struct{}, len(batch))
	for _, r := range batch {
		in[r.Region] = struct{}{}
	}
	var out []string
	for _, id := range l.Regions() {
		if _, ok := in[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Span returns the first and last date in the ledger
func (l *Ledger) Span() (first, last ptime.Day, ok bool) {
	if len(l.rows) == 0 {
		return ptime.Day{}, ptime.Day{}, false
	}
	return l.rows[0].Date, l.rows[len(l.rows)-1].Date, true
}

// Series returns the values of metric for region from the given day on (zero
// Day means all), in date order. Rows without the metric are skipped
func (l *Ledger) Series(region, metric string, from ptime.Day) []Point {
	var out []Point
	for _, r := range l.rows {
		if r.Region != region || (!from.IsZero() && r.Date.Before(from)) {
			continue
		}
		if v, ok := r.Metrics[metric]; ok {
			out = append(out, Point{Date: r.Date, Value: v})
		}
	}
	return out
}

func (l *Ledger) addMetric(m string) {
	if m == "" || slices.Contains(l.metrics, m) {
		return
	}
	l.metrics = append(l.metrics, m)
}

// reorder sorts rows by date keeping insertion order within a date and rebuilds the index
func (l *Ledger) reorder() {
	sort.SliceStable(l.rows, func(i, j int) bool { return l.rows[i].Date.Before(l.rows[j].Date) })
	clear(l.index)
	for i, r := range l.rows {
		l.index[r.Key()] = i
	}
}

func sameBits(a, b float64) bool { return math.Float64bits(a) == math.Float64bits(b) }
