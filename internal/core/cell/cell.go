// Package cell is the coercion boundary for untyped spreadsheet and CSV cells.
// Every raw value becomes exactly one of Empty, Number, Text or Malformed, and
// consumers narrow explicitly instead of guessing
package cell

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Kind is the variant of a parsed cell
type Kind uint8

const (
	// Empty is a blank cell or an explicit missing marker (NaN, -, n/a)
	Empty Kind = iota
	// Number is a finite numeric value
	Number
	// Text is a non numeric label
	Text
	// Malformed looks numeric but does not parse cleanly
	Malformed
)

// String renders the kind for error messages
func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Number:
		return "number"
	case Text:
		return "text"
	default:
		return "malformed"
	}
}

// Locale selects decimal and grouping separators
type Locale uint8

const (
	// EN uses '.' for decimals and ',' for grouping (1,234.5)
	EN Locale = iota
	// DE uses ',' for decimals and '.' for grouping (1.234,5)
	DE
)

// ParseLocale maps "en"/"de" to a Locale; anything else is EN
func ParseLocale(s string) Locale {
	if strings.EqualFold(strings.TrimSpace(s), "de") {
		return DE
	}
	return EN
}

// Cell is one coerced value. Num is set only for Number; Raw keeps the input
type Cell struct {
	Kind Kind
	Num  float64
	Raw  string
}

// IsNumber reports whether c narrowed to a number
func (c Cell) IsNumber() bool { return c.Kind == Number }

// Text returns the trimmed raw content
func (c Cell) Text() string { return strings.TrimSpace(c.Raw) }

var missing = map[string]struct{}{
	"": {}, "-": {}, "–": {}, "—": {}, ".": {}, "nan": {}, "n/a": {}, "na": {}, "null": {}, "none": {},
}

// Parse coerces raw according to loc
func Parse(raw string, loc Locale) Cell {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
	if _, ok := missing[strings.ToLower(s)]; ok {
		return Cell{Kind: Empty, Raw: raw}
	}
	if !numericLooking(s) {
		return Cell{Kind: Text, Raw: raw}
	}
	v, ok := parseNumber(s, loc)
	if !ok {
		return Cell{Kind: Malformed, Raw: raw}
	}
	return Cell{Kind: Number, Num: v, Raw: raw}
}

// FromFloat wraps an already typed numeric value; NaN becomes Empty, Inf Malformed
func FromFloat(v float64) Cell {
	switch {
	case math.IsNaN(v):
		return Cell{Kind: Empty, Raw: "NaN"}
	case math.IsInf(v, 0):
		return Cell{Kind: Malformed, Raw: strconv.FormatFloat(v, 'g', -1, 64)}
	}
	if v == 0 {
		v = 0
	}
	return Cell{Kind: Number, Num: v, Raw: strconv.FormatFloat(v, 'g', -1, 64)}
}

// numericLooking: starts with a sign or digit (after an optional sign) and contains a digit
func numericLooking(s string) bool {
	hasDigit := false
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case i == 0 && (r == '-' || r == '+'):
		case r == '.' || r == ',' || r == ' ' || r == '\'' || r == 'e' || r == 'E' || r == '%':
		default:
			return false
		}
	}
	return hasDigit
}

func parseNumber(s string, loc Locale) (float64, bool) {
	s = strings.TrimSuffix(s, "%")
	s = strings.NewReplacer(" ", "", "'", "").Replace(s)

	dec, grp := ".", ","
	if loc == DE {
		dec, grp = ",", "."
	}
	if !validGrouping(s, dec, grp) {
		return 0, false
	}
	s = strings.ReplaceAll(s, grp, "")
	if dec != "." {
		if strings.Contains(s, ".") {
			return 0, false
		}
		s = strings.Replace(s, dec, ".", 1)
	}
	if strings.Count(s, ".") > 1 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	if v == 0 {
		// "-0" must not reach the ledger, where it would conflict bitwise with 0
		v = 0
	}
	return v, true
}

// validGrouping rejects grouping separators that are not in thousands position,
// e.g. "1,23" under EN, which is a decimal from the other locale and must not
// silently become 123
func validGrouping(s, dec, grp string) bool {
	if !strings.Contains(s, grp) {
		return true
	}
	intPart := s
	if i := strings.Index(s, dec); i >= 0 {
		intPart = s[:i]
	}
	if strings.Contains(s[len(intPart):], grp) {
		return false
	}
	intPart = strings.TrimLeft(intPart, "+-")
	groups := strings.Split(intPart, grp)
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
