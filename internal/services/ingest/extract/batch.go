package extract

import (
	"slices"
	"strings"

	"impfmon/internal/core/ledger"
)

// batch collects records in first-appearance order and enforces one row per
// (date, region), or per (date, region, partition) when rows are summed
type batch struct {
	order []ledger.Key
	recs  map[ledger.Key]ledger.Record
	rows  map[string]int
}

func newBatch() *batch {
	return &batch{
		recs: map[ledger.Key]ledger.Record{},
		rows: map[string]int{},
	}
}

func (b *batch) add(rec ledger.Record, part []string, row int) error {
	k := rec.Key()
	seen := k.Date.String() + "\x00" + k.Region + "\x00" + strings.Join(part, "\x00")
	if first, dup := b.rows[seen]; dup {
		return &DuplicateRecordError{Region: k.Region, Date: k.Date, Row: row, FirstRow: first}
	}
	b.rows[seen] = row

	cur, ok := b.recs[k]
	if !ok {
		b.order = append(b.order, k)
		b.recs[k] = rec.Clone()
		return nil
	}
	// only reachable for partitioned formats
	for m, v := range rec.Metrics {
		cur.Metrics[m] += v
	}
	return nil
}

// records returns the batch ordered by date, then by first appearance
func (b *batch) records() []ledger.Record {
	out := make([]ledger.Record, 0, len(b.order))
	for _, k := range b.order {
		out = append(out, b.recs[k])
	}
	slices.SortStableFunc(out, func(a, c ledger.Record) int { return a.Date.Compare(c.Date) })
	return out
}
