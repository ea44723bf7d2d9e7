package extract

import (
	"impfmon/internal/core/cell"
	perr "impfmon/internal/platform/errors"
	"impfmon/internal/services/ingest/domain"
)

// defaultScanRows bounds how far down a table the header is searched for
const defaultScanRows = 30

// MetricSpec binds one ledger metric to the header labels it may appear under.
// Synonyms are ranked: earlier entries win when several columns qualify
type MetricSpec struct {
	Name       string
	Synonyms   []string
	Cumulative bool
}

// Format is the structural signature of one publisher document
type Format struct {
	Name        string
	Description string

	// RegionColumns are the ranked header labels of the region column
	RegionColumns []string
	// DateColumns are the ranked labels of a per-row date column; empty means the
	// observation date comes from the document or the revision
	DateColumns []string
	// DateLayouts parse per-row and document dates
	DateLayouts []string
	Metrics     []MetricSpec
	// PartitionColumns split one (date, region) into several rows whose values are summed
	PartitionColumns []string

	Locale cell.Locale
	// HeaderDepth is 1, or 2 when labels span two rows (upper row merged across columns)
	HeaderDepth int
	// ScanRows limits the header search per table
	ScanRows int
}

// MetricNames lists metric names in format order
func (f Format) MetricNames() []string {
	out := make([]string, len(f.Metrics))
	for i, m := range f.Metrics {
		out[i] = m.Name
	}
	return out
}

// Cumulative lists the metrics that must never decrease over time
func (f Format) Cumulative() []string {
	var out []string
	for _, m := range f.Metrics {
		if m.Cumulative {
			out = append(out, m.Name)
		}
	}
	return out
}

// Descriptors returns the metric descriptors of the format
func (f Format) Descriptors() []domain.Metric {
	out := make([]domain.Metric, len(f.Metrics))
	for i, m := range f.Metrics {
		out[i] = domain.Metric{Name: m.Name, Cumulative: m.Cumulative}
	}
	return out
}

// Validate reports an incomplete format definition
func (f Format) Validate() error {
	if f.Name == "" {
		return perr.InvalidArgf("format has no name")
	}
	if len(f.RegionColumns) == 0 {
		return perr.InvalidArgf("format %s: no region column", f.Name)
	}
	if len(f.Metrics) == 0 {
		return perr.InvalidArgf("format %s: no metrics", f.Name)
	}
	seen := map[string]bool{}
	for _, m := range f.Metrics {
		if m.Name == "" || len(m.Synonyms) == 0 {
			return perr.InvalidArgf("format %s: metric %q needs a name and synonyms", f.Name, m.Name)
		}
		if seen[m.Name] {
			return perr.InvalidArgf("format %s: metric %q declared twice", f.Name, m.Name)
		}
		seen[m.Name] = true
	}
	if f.HeaderDepth < 0 || f.HeaderDepth > 2 {
		return perr.InvalidArgf("format %s: header depth %d", f.Name, f.HeaderDepth)
	}
	return nil
}

func (f Format) depth() int {
	if f.HeaderDepth < 1 {
		return 1
	}
	return f.HeaderDepth
}

func (f Format) scanRows() int {
	if f.ScanRows <= 0 {
		return defaultScanRows
	}
	return f.ScanRows
}

// expectations describes the signature for SignatureNotFound messages
func (f Format) expectations() []string {
	out := []string{"region column " + quoteAny(f.RegionColumns)}
	if len(f.DateColumns) > 0 {
		out = append(out, "date column "+quoteAny(f.DateColumns))
	}
	for _, p := range f.PartitionColumns {
		out = append(out, "partition column "+quoteAny([]string{p}))
	}
	for _, m := range f.Metrics {
		out = append(out, m.Name+" column "+quoteAny(m.Synonyms))
	}
	return out
}
