// Package normalize folds spreadsheet labels (region names, column headers)
// into comparison keys so that publisher spelling drift does not break matching
// Pipeline order
// 1 Sanitize controls, NBSP and invalid UTF-8 to spaces
// 2 Drop footnote markers (superscript digits, asterisks, daggers)
// 3 Unicode NFKC normalization
// 4 Case folding (ß folds to ss)
// 5 German umlaut transliteration ä->ae ö->oe ü->ue
// 6 Strip remaining combining marks (é->e)
// 7 Punctuation and symbols to spaces, collapse whitespace and trim
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// transformer chains are pooled; Key is safe for concurrent use
var (
	// steps 2-4
	foldPool = sync.Pool{
		New: func() any {
			return transform.Chain(
				runes.Remove(runes.In(unicode.No)), // ¹ ² ³ footnotes
				runes.Remove(runes.Predicate(isFootnoteMark)),
				norm.NFKC,
				cases.Fold(),
				width.Fold,
			)
		},
	}
	// step 6
	markPool = sync.Pool{
		New: func() any {
			return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
		},
	}

	umlauts = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue")
)

// Key returns the comparison key of a label following the pipeline above
// Key is idempotent: Key(Key(s)) == Key(s)
func Key(s string) string {
	if s == "" {
		return ""
	}
	s = Sanitize(s)

	s = apply(&foldPool, s)
	s = umlauts.Replace(s)
	s = apply(&markPool, s)

	return words(s)
}

// Label cleans a label for display without folding case: sanitized,
// footnote markers removed and whitespace collapsed
func Label(s string) string {
	s = Sanitize(s)
	s = strings.Map(func(r rune) rune {
		if isFootnoteMark(r) || unicode.Is(unicode.No, r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func apply(p *sync.Pool, s string) string {
	tr := p.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	p.Put(tr)
	if err != nil {
		return s
	}
	return out
}

// words keeps letters and digits, turning every other run into a single space
func words(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

func isFootnoteMark(r rune) bool {
	switch r {
	case '*', '†', '‡', '§':
		return true
	}
	return false
}
