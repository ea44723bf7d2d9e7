package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"unicode/utf8"

	perr "impfmon/internal/platform/errors"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readDelimited decodes text (UTF-8, else windows-1252), sniffs the delimiter
// from the first non-blank line and reads all records
func readDelimited(b []byte) (Table, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if !utf8.Valid(b) {
		dec, err := charmap.Windows1252.NewDecoder().Bytes(b)
		if err != nil {
			return Table{}, perr.Wrap(err, perr.ErrorCodeExtraction, "decode windows-1252 text")
		}
		b = dec
	}

	r := csv.NewReader(bytes.NewReader(b))
	r.Comma = sniffDelimiter(b)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, perr.Wrap(err, perr.ErrorCodeExtraction, "read delimited text")
		}
		rows = append(rows, rec)
	}
	return Table{Rows: rows}, nil
}

// sniffDelimiter picks the most frequent of tab, semicolon and comma on the
// first non-blank line; ties resolve in that order
func sniffDelimiter(b []byte) rune {
	line := b
	for len(line) > 0 {
		i := bytes.IndexByte(line, '\n')
		cur := line
		if i >= 0 {
			cur, line = line[:i], line[i+1:]
		} else {
			line = nil
		}
		if len(bytes.TrimSpace(cur)) > 0 {
			b = cur
			break
		}
	}
	best, bestN := ',', 0
	for _, d := range []rune{'\t', ';', ','} {
		if n := bytes.Count(b, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
