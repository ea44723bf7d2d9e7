// Package extract locates a format's header inside a tabular document and turns
// the rows below it into normalized records
package extract

import (
	"context"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"impfmon/internal/adapters/tabular"
	"impfmon/internal/core/cell"
	"impfmon/internal/core/ledger"
	perr "impfmon/internal/platform/errors"
	ptime "impfmon/internal/platform/time"
	"impfmon/internal/services/ingest/domain"
)

// Extractor implements domain.Extractor for one format
type Extractor struct {
	format Format
}

var _ domain.Extractor = (*Extractor)(nil)

// New returns an extractor for f
func New(f Format) (*Extractor, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{format: clone(f)}, nil
}

// Format returns the format the extractor was built for
func (x *Extractor) Format() Format { return clone(x.format) }

// Extract decodes rev and extracts its records. Errors are all Extraction-coded;
// nothing is partially returned. Decoding itself is not interruptible, ctx is
// checked after it and every few hundred rows
func (x *Extractor) Extract(ctx context.Context, rev domain.SourceRevision, reg domain.Registry) (domain.Extraction, error) {
	if err := interrupted(ctx); err != nil {
		return domain.Extraction{}, err
	}
	doc, err := tabular.Read(rev.Bytes)
	if err != nil {
		return domain.Extraction{}, err
	}
	fallback := rev.AsOf
	if fallback.IsZero() && !rev.FetchedAt.IsZero() {
		fallback = ptime.DayOf(rev.FetchedAt)
	}
	return x.ExtractDocument(ctx, doc, fallback, reg)
}

// checkEvery is the row interval between context checks
const checkEvery = 256

func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeExtraction, "extraction interrupted")
	}
	return nil
}

// ExtractDocument extracts from an already decoded document. asOf dates rows
// when neither a date column nor a document date exists
func (x *Extractor) ExtractDocument(ctx context.Context, doc tabular.Document, asOf ptime.Day, reg domain.Registry) (domain.Extraction, error) {
	if err := interrupted(ctx); err != nil {
		return domain.Extraction{}, err
	}
	f := x.format
	lay, ok := locate(f, doc.Tables)
	if !ok {
		return domain.Extraction{}, &SignatureNotFoundError{Format: f.Name, Expected: f.expectations(), Tables: len(doc.Tables)}
	}
	t := doc.Tables[lay.table]

	var docDate ptime.Day
	if lay.date < 0 {
		docDate = documentDate(f, doc.Tables, lay)
		if docDate.IsZero() {
			docDate = asOf
		}
		if docDate.IsZero() {
			return domain.Extraction{}, perr.Extractionf("%s: no date column, no document date and no revision date", f.Name)
		}
	}

	b := newBatch()
	var out domain.Extraction
	for r := lay.dataRow; r < len(t.Rows); r++ {
		if (r-lay.dataRow)%checkEvery == checkEvery-1 {
			if err := interrupted(ctx); err != nil {
				return domain.Extraction{}, err
			}
		}
		row := r + 1
		label := strings.TrimSpace(t.Cell(r, lay.region))
		if label == "" {
			break
		}
		region, ok := reg.Resolve(label)
		if !ok {
			return domain.Extraction{}, &UnknownRegionError{Label: label, Row: row, Suggestion: reg.Suggest(label)}
		}
		if region.Ignored {
			out.Skipped++
			continue
		}

		date := docDate
		if lay.date >= 0 {
			d, err := rowDate(f, t.Cell(r, lay.date), t.IsNumeric(r, lay.date))
			if err != nil {
				return domain.Extraction{}, &MalformedValueError{Row: row, Col: lay.date + 1, Column: f.DateColumns[0], Raw: t.Cell(r, lay.date), Reason: "invalid date"}
			}
			date = d
		}

		metrics := map[string]float64{}
		for i, c := range lay.metrics {
			raw := t.Cell(r, c)
			v, present, err := number(raw, f.Locale, t.IsNumeric(r, c))
			if err != "" {
				return domain.Extraction{}, &MalformedValueError{Row: row, Col: c + 1, Column: f.Metrics[i].Name, Raw: raw, Reason: err}
			}
			if present {
				metrics[f.Metrics[i].Name] = v
			}
		}
		if len(metrics) == 0 {
			continue
		}

		var part []string
		for _, c := range lay.parts {
			part = append(part, strings.TrimSpace(t.Cell(r, c)))
		}
		if err := b.add(ledger.Record{Region: region.ID, Date: date, Metrics: metrics}, part, row); err != nil {
			return domain.Extraction{}, err
		}
	}

	out.Records = b.records()
	for _, rec := range out.Records {
		if rec.Date.After(out.DataDate) {
			out.DataDate = rec.Date
		}
	}
	return out, nil
}

// number narrows a metric cell. Typed workbook numbers carry machine text and
// are read as EN; text cells are always read in the format's locale
func number(raw string, loc cell.Locale, typed bool) (v float64, present bool, reason string) {
	if typed {
		loc = cell.EN
	}
	c := cell.Parse(raw, loc)
	switch c.Kind {
	case cell.Empty:
		return 0, false, ""
	case cell.Number:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return 0, false, "not a finite number"
		}
		if c.Num < 0 {
			return 0, false, "negative count"
		}
		return c.Num, true, ""
	case cell.Text:
		return 0, false, "not a number"
	}
	return 0, false, "malformed number"
}

func rowDate(f Format, raw string, typed bool) (ptime.Day, error) {
	s := strings.TrimSpace(raw)
	if d, err := ptime.ParseDayLayouts(s, f.DateLayouts...); err == nil {
		return d, nil
	}
	if typed {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			if d, ok := tabular.SerialDay(v); ok {
				return d, nil
			}
		}
	}
	return ptime.Day{}, perr.InvalidArgf("invalid date %q", raw)
}

var (
	standRe   = regexp.MustCompile(`(?i)(?:daten)?stand\s*(?:vom|:)?\s*:?\s*(\d{1,2}\.\d{1,2}\.\d{2,4}|\d{4}-\d{2}-\d{2})`)
	bareDayRe = regexp.MustCompile(`(\d{1,2}\.\d{1,2}\.\d{2,4}|\d{4}-\d{2}-\d{2})`)
)

var docLayouts = []string{"2.1.2006", "2.1.06", "2006-01-02"}

// documentDate looks for "Stand: 23.03.2021" above the header, then in the
// sheet names, then for a bare date in the matched sheet's name
func documentDate(f Format, tables []tabular.Table, lay layout) ptime.Day {
	layouts := slices.Concat(f.DateLayouts, docLayouts)
	parse := func(re *regexp.Regexp, s string) (ptime.Day, bool) {
		m := re.FindStringSubmatch(s)
		if m == nil {
			return ptime.Day{}, false
		}
		d, err := ptime.ParseDayLayouts(m[1], layouts...)
		return d, err == nil
	}

	t := tables[lay.table]
	for r := 0; r < lay.headerRow && r < len(t.Rows); r++ {
		for _, v := range t.Rows[r] {
			if d, ok := parse(standRe, v); ok {
				return d
			}
		}
	}
	for _, other := range tables {
		if d, ok := parse(standRe, other.Name); ok {
			return d
		}
	}
	if d, ok := parse(bareDayRe, t.Name); ok {
		return d
	}
	return ptime.Day{}
}
