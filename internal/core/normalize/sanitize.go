package normalize

import (
	"strings"
	"unicode/utf8"
)

// Sanitize replaces everything that is not printable text with a space:
// ASCII controls (tabs and newlines included, since cells are single-line labels),
// DEL, C1 controls, NBSP, zero-width and BOM characters, and invalid UTF-8 bytes.
// Returns s unchanged when nothing needs cleaning
func Sanitize(s string) string {
	i := 0
	for i < len(s) {
		c := s[i]
		if c < 0x80 {
			if c < 0x20 || c == 0x7F {
				break
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if blank(r, size) {
			break
		}
		i += size
	}
	if i == len(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(s[:i])
	for i < len(s) {
		c := s[i]
		if c < 0x80 {
			if c < 0x20 || c == 0x7F {
				b.WriteByte(' ')
			} else {
				b.WriteByte(c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if blank(r, size) {
			b.WriteByte(' ')
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

func blank(r rune, size int) bool {
	switch {
	case r == utf8.RuneError && size == 1:
		return true
	case r >= 0x80 && r <= 0x9F:
		return true
	case r == '\u00a0', r == '\u200b', r == '\u200c', r == '\u200d', r == '\u2060', r == '\ufeff':
		return true
	}
	return false
}
