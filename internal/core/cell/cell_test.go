package cell

import (
	"math"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		raw  string
		loc  Locale
		kind Kind
		num  float64
	}{
		{"", EN, Empty, 0},
		{"   ", EN, Empty, 0},
		{"NaN", EN, Empty, 0},
		{"-", DE, Empty, 0},
		{"n/a", EN, Empty, 0},
		{"1234", EN, Number, 1234},
		{" 1,234.5 ", EN, Number, 1234.5},
		{"1.234,5", DE, Number, 1234.5},
		{"1.234.567", DE, Number, 1234567},
		{"0,5", DE, Number, 0.5},
		{"12.5", EN, Number, 12.5},
		{"-3", EN, Number, -3},
		{"1e3", EN, Number, 1000},
		{"4,7%", DE, Number, 4.7},
		{"1\u00a0234", EN, Number, 1234},
		{"1 234", EN, Number, 1234},
		{"Bayern", EN, Text, 0},
		{"Gesamt*", EN, Text, 0},
		{"1,23", EN, Malformed, 0},
		{"1.2.3", EN, Malformed, 0},
		{"12.5", DE, Malformed, 0},
		{"1,2,3", DE, Malformed, 0},
		{"--5", EN, Text, 0},
	}
	for _, c := range cases {
		got := Parse(c.raw, c.loc)
		if got.Kind != c.kind {
			t.Fatalf("Parse(%q, %d) kind = %s, want %s", c.raw, c.loc, got.Kind, c.kind)
		}
		if c.kind == Number && got.Num != c.num {
			t.Fatalf("Parse(%q, %d) = %v, want %v", c.raw, c.loc, got.Num, c.num)
		}
		if got.Raw != c.raw {
			t.Fatalf("Parse(%q) lost raw text: %q", c.raw, got.Raw)
		}
	}
}

func TestFromFloat(t *testing.T) {
	if c := FromFloat(42); !c.IsNumber() || c.Num != 42 || c.Raw != "42" {
		t.Fatalf("FromFloat(42) = %+v", c)
	}
	if c := FromFloat(math.NaN()); c.Kind != Empty {
		t.Fatalf("NaN should be empty, got %s", c.Kind)
	}
	if c := FromFloat(math.Inf(1)); c.Kind != Malformed {
		t.Fatalf("Inf should be malformed, got %s", c.Kind)
	}
}

func TestParseLocale(t *testing.T) {
	if ParseLocale(" DE ") != DE || ParseLocale("en") != EN || ParseLocale("fr") != EN {
		t.Fatalf("ParseLocale mapping")
	}
}

func TestNegativeZeroIsZero(t *testing.T) {
	for _, raw := range []string{"-0", "-0.0", "-0,0", "+0"} {
		c := Parse(raw, DE)
		if raw == "-0.0" {
			c = Parse(raw, EN)
		}
		if !c.IsNumber() || c.Num != 0 || math.Signbit(c.Num) {
			t.Fatalf("Parse(%q) = %+v, signbit %v", raw, c, math.Signbit(c.Num))
		}
	}
	if c := FromFloat(math.Copysign(0, -1)); math.Signbit(c.Num) || c.Raw != "0" {
		t.Fatalf("FromFloat(-0) = %+v", c)
	}
}
