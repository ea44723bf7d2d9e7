package normalize

import (
	"testing"
)

func TestKey_Table(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{"identity ascii", "berlin", "berlin"},
		{"case fold", "BERLIN", "berlin"},
		{"hyphen to space", "Baden-Württemberg", "baden wuerttemberg"},
		{"transliterated spelling matches", "Baden-Wuerttemberg", "baden wuerttemberg"},
		{"eszett folds", "Gießen", "giessen"},
		{"footnote asterisk", "Bayern*", "bayern"},
		{"superscript footnote", "Hessen¹", "hessen"},
		{"nbsp and newline in header", "Impfungen\u00a0kumulativ\nGesamt", "impfungen kumulativ gesamt"},
		{"zero width", "Sach\u200bsen", "sach sen"},
		{"accents stripped", "Crème", "creme"},
		{"punctuation runs", "  SK  München (Stadt)  ", "sk muenchen stadt"},
		{"fullwidth", "ＢＥＲＬＩＮ", "berlin"},
		{"digits kept", "LK Region Hannover 2", "lk region hannover 2"},
		{"invalid utf8", string([]byte{'B', 0xff, 'Y'}), "b y"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Key(tc.in)
			if got != tc.out {
				t.Fatalf("Key(%q) = %q, want %q", tc.in, got, tc.out)
			}
			if again := Key(got); again != got {
				t.Fatalf("Key not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"Bayern*":                 "Bayern",
		"  Gesamt\u00a0 ":         "Gesamt",
		"Impfungen\nkumulativ":    "Impfungen kumulativ",
		"Mecklenburg-Vorpommern²": "Mecklenburg-Vorpommern",
		"Baden-Württemberg":       "Baden-Württemberg",
	}
	for in, want := range cases {
		if got := Label(in); got != want {
			t.Fatalf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize("clean text"); got != "clean text" {
		t.Fatalf("fast path altered input: %q", got)
	}
	if got := Sanitize("a\tb\x00c\u0085d\ufeffe"); got != "a b c d e" {
		t.Fatalf("Sanitize = %q", got)
	}
}
