package tabular

import (
	"bytes"
	"io"
	"math"
	"strconv"

	perr "impfmon/internal/platform/errors"
	ptime "impfmon/internal/platform/time"

	"github.com/xuri/excelize/v2"
)

// readXLSX returns every sheet with raw (unformatted) cell values so numbers
// are never rendered through the workbook's display format
func readXLSX(b []byte) ([]Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeExtraction, "open spreadsheet")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	out := make([]Table, 0, len(sheets))
	for _, name := range sheets {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeExtraction, "read sheet %q", name)
		}
		numeric, err := cellTypes(f, name, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, Table{Name: name, Rows: rows, Numeric: numeric})
	}
	if len(out) == 0 {
		return nil, perr.Extractionf("spreadsheet has no sheets")
	}
	return out, nil
}

// cellTypes flags the non-empty cells stored as numbers. A cell without a type
// attribute is numeric in OOXML; strings, booleans, errors and formula strings are not
func cellTypes(f *excelize.File, sheet string, rows [][]string) ([][]bool, error) {
	out := make([][]bool, len(rows))
	for r, row := range rows {
		out[r] = make([]bool, len(row))
		for c, v := range row {
			if v == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, perr.Wrap(err, perr.ErrorCodeExtraction, "cell reference")
			}
			ct, err := f.GetCellType(sheet, ref)
			if err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeExtraction, "cell type %s!%s", sheet, ref)
			}
			out[r][c] = ct == excelize.CellTypeNumber || ct == excelize.CellTypeUnset
		}
	}
	return out, nil
}

// SerialDay converts a spreadsheet date serial (days since 1899-12-30) into a Day.
// Raw cell values of date-formatted cells arrive in this form
func SerialDay(v float64) (ptime.Day, bool) {
	// 1900-01-01 .. 9999-12-31
	if v < 1 || v > 2958465 || math.IsNaN(v) {
		return ptime.Day{}, false
	}
	t, err := excelize.ExcelDateToTime(v, false)
	if err != nil {
		return ptime.Day{}, false
	}
	return ptime.DayOf(t), true
}

// WriteXLSX writes tables as sheets of a new workbook, in order. Cells flagged
// in Numeric are stored as numbers, everything else as text
func WriteXLSX(w io.Writer, tables ...Table) error {
	if len(tables) == 0 {
		return perr.InvalidArgf("no tables to write")
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const first = "Sheet1"
	for i, t := range tables {
		name := t.Name
		if name == "" {
			name = first
		}
		if i == 0 {
			if name != first {
				if err := f.SetSheetName(first, name); err != nil {
					return perr.Wrapf(err, perr.ErrorCodePersistence, "name sheet %q", name)
				}
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return perr.Wrapf(err, perr.ErrorCodePersistence, "add sheet %q", name)
		}
		for r, row := range t.Rows {
			cellRef, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return perr.Wrap(err, perr.ErrorCodePersistence, "cell reference")
			}
			vals := make([]any, len(row))
			for c, v := range row {
				vals[c] = v
				if t.IsNumeric(r, c) {
					if n, err := strconv.ParseFloat(v, 64); err == nil {
						vals[c] = n
					}
				}
			}
			if err := f.SetSheetRow(name, cellRef, &vals); err != nil {
				return perr.Wrapf(err, perr.ErrorCodePersistence, "write row %d of %q", r+1, name)
			}
		}
	}
	if err := f.Write(w); err != nil {
		return perr.Wrap(err, perr.ErrorCodePersistence, "write workbook")
	}
	return nil
}
