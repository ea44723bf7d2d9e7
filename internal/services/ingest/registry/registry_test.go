package registry

import (
	"path/filepath"
	"testing"

	perr "impfmon/internal/platform/errors"
	kit "impfmon/internal/platform/testkit"
	"impfmon/internal/services/ingest/domain"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	if r.Len() != 18 {
		t.Fatalf("Len = %d, want 18", r.Len())
	}
	var sum int64
	states := 0
	for _, reg := range r.Regions() {
		if reg.Kind == domain.KindState {
			states++
			sum += reg.Population
		}
	}
	if states != 16 {
		t.Fatalf("states = %d, want 16", states)
	}
	de, _ := r.Population("DE")
	if sum != de {
		t.Fatalf("state populations sum to %d, country has %d", sum, de)
	}
	if !r.Version().Valid() {
		t.Fatalf("version %q is not a token", r.Version())
	}
}

func TestResolveSpellings(t *testing.T) {
	r := Default()
	cases := map[string]string{
		"Baden-Württemberg":  "DE-BW",
		"Baden-Wuerttemberg": "DE-BW",
		"baden württemberg":  "DE-BW",
		"BADEN-WÜRTTEMBERG*": "DE-BW",
		"de-by":              "DE-BY",
		"Bayern 1)":          "DE-BY",
		"Thüringen ":         "DE-TH",
		"Gesamt":             "DE",
		"Sachsen-Anhalt":     "DE-ST",
		"Sachsen":            "DE-SN",
		"NRW":                "DE-NW",
		"Bundesressorts":     "DE-BUND",
	}
	for in, want := range cases {
		got, ok := r.Resolve(in)
		if !ok || got.ID != want {
			t.Fatalf("Resolve(%q) = %q,%v, want %q", in, got.ID, ok, want)
		}
	}
	if _, ok := r.Resolve("Atlantis"); ok {
		t.Fatalf("Atlantis resolved")
	}
	if _, ok := r.Resolve("   "); ok {
		t.Fatalf("blank label resolved")
	}
}

func TestIgnoredRegion(t *testing.T) {
	reg, ok := Default().Resolve("Impfungen durch Bund")
	if !ok || !reg.Ignored {
		t.Fatalf("federal row should resolve as ignored, got %+v ok=%v", reg, ok)
	}
	if _, ok := Default().Population("DE-BUND"); ok {
		t.Fatalf("ignored region should have no population")
	}
}

func TestSuggest(t *testing.T) {
	r := Default()
	if got := r.Suggest("Bayren"); got != "Bayern" {
		t.Fatalf("Suggest(Bayren) = %q", got)
	}
	if got := r.Suggest("Mecklenburg Vorpomern"); got != "Mecklenburg-Vorpommern" {
		t.Fatalf("Suggest = %q", got)
	}
	if got := r.Suggest("zzzzqqq"); got != "" {
		t.Fatalf("Suggest(garbage) = %q, want empty", got)
	}
}

func TestRegionsAreCopies(t *testing.T) {
	r := Default()
	all := r.Regions()
	all[0].Aliases[0] = "mutated"
	if got, _ := r.Resolve("Gesamt"); got.ID != "DE" {
		t.Fatalf("registry mutated through Regions(): %+v", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := kit.WriteFile(t, dir, "regions.csv",
		"id,name,kind,population,aliases,ignored\n"+
			"DE-BY,Bayern*,state,13140183,,\n"+
			"DE-BY-09162,München,county,1488202,LK München|SK München,no\n")
	r, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := r.Resolve("SK Muenchen")
	if !ok || got.ID != "DE-BY-09162" || got.Kind != domain.KindCounty {
		t.Fatalf("Resolve county = %+v %v", got, ok)
	}
	if r.Source() != p {
		t.Fatalf("Source = %q", r.Source())
	}
	if by, _ := r.Resolve("DE-BY"); by.Name != "Bayern" {
		t.Fatalf("footnote kept in display name: %q", by.Name)
	}
}

func TestLoadEmptyPathIsDefault(t *testing.T) {
	r, err := Load("")
	if err != nil || r.Len() != Default().Len() {
		t.Fatalf("Load(\"\") = %v, %v", r, err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.csv"))
	kit.MustCode(t, err, perr.ErrorCodeNotFound)

	cases := map[string]string{
		"missing column": "id,name\nDE,Deutschland\n",
		"bad kind":       "id,name,kind\nDE,Deutschland,planet\n",
		"bad id":         "id,name,kind\n-DE,Deutschland,country\n",
		"bad population": "id,name,kind,population\nDE,Deutschland,country,many\n",
		"negative pop":   "id,name,kind,population\nDE,Deutschland,country,-1\n",
		"bad ignored":    "id,name,kind,ignored\nDE,Deutschland,country,maybe\n",
		"duplicate id":   "id,name,kind\nDE,Deutschland,country\nde,Germany,country\n",
		"shared alias":   "id,name,kind,aliases\nDE-SN,Sachsen,state,SN\nDE-XX,Other,state,sachsen\n",
		"no rows":        "id,name,kind\n",
	}
	for name, body := range cases {
		_, err := Parse([]byte(body), name)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		kit.MustCode(t, err, perr.ErrorCodeValidation)
	}
}
