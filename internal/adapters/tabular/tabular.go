// Package tabular turns raw published documents into plain string grids.
// Spreadsheets become one Table per sheet in workbook order; delimited text
// becomes a single Table. No interpretation happens here: cells stay strings
// and the caller decides what they mean
package tabular

import (
	"bytes"

	perr "impfmon/internal/platform/errors"

	"github.com/gabriel-vasile/mimetype"
)

// Kind names the document flavour that was detected
type Kind string

const (
	// KindSpreadsheet is an OOXML workbook
	KindSpreadsheet Kind = "xlsx"
	// KindDelimited is CSV/TSV/semicolon separated text
	KindDelimited Kind = "delimited"
)

// Table is one rectangular-ish block of cells; rows may be ragged
type Table struct {
	Name string
	Rows [][]string
	// Numeric marks cells a workbook stores as numbers, parallel to Rows.
	// Their text is a machine value ("1234.5"), never a localized rendering.
	// Nil for delimited text, where every cell is text
	Numeric [][]bool
}

// IsNumeric reports whether the cell at row r, column c is a typed number
func (t Table) IsNumeric(r, c int) bool {
	if r < 0 || r >= len(t.Numeric) || c < 0 || c >= len(t.Numeric[r]) {
		return false
	}
	return t.Numeric[r][c]
}

// Cell returns the cell at row r, column c or "" when out of range
func (t Table) Cell(r, c int) string {
	if r < 0 || r >= len(t.Rows) || c < 0 || c >= len(t.Rows[r]) {
		return ""
	}
	return t.Rows[r][c]
}

// Document is the parsed form of a source revision
type Document struct {
	Kind   Kind
	MIME   string
	Tables []Table
}

// Read sniffs b and dispatches to the matching reader
func Read(b []byte) (Document, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return Document{}, perr.Extractionf("document is empty")
	}
	mt := mimetype.Detect(b)

	switch {
	case isA(mt, "application/zip"):
		tables, err := readXLSX(b)
		if err != nil {
			return Document{}, err
		}
		return Document{Kind: KindSpreadsheet, MIME: mt.String(), Tables: tables}, nil

	case isA(mt, "application/x-ole-storage"), isA(mt, "application/vnd.ms-excel"):
		return Document{}, perr.Extractionf("legacy binary spreadsheet (%s) is not supported", mt.String())

	case isA(mt, "text/plain"), looksTextual(b):
		t, err := readDelimited(b)
		if err != nil {
			return Document{}, err
		}
		return Document{Kind: KindDelimited, MIME: mt.String(), Tables: []Table{t}}, nil
	}
	return Document{}, perr.Extractionf("unsupported document type %s", mt.String())
}

// Extension returns the file extension for archiving b (".xlsx", ".csv", ...)
func Extension(b []byte) string {
	mt := mimetype.Detect(b)
	switch {
	case isA(mt, "application/zip"):
		return ".xlsx"
	case isA(mt, "text/tab-separated-values"):
		return ".tsv"
	case isA(mt, "text/csv"):
		return ".csv"
	case isA(mt, "text/plain"), looksTextual(b):
		return ".txt"
	}
	if ext := mt.Extension(); ext != "" {
		return ext
	}
	return ".bin"
}

// isA reports whether mt or any of its parents is want
func isA(mt *mimetype.MIME, want string) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}

// looksTextual catches legacy 8-bit text that the sniffer reports as binary:
// no NUL bytes in the sniffed prefix
func looksTextual(b []byte) bool {
	n := min(len(b), 8192)
	return bytes.IndexByte(b[:n], 0) < 0
}
