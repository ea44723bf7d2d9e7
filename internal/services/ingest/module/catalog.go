package module

import (
	"sort"
	"strings"

	"impfmon/internal/adapters/source"
	"impfmon/internal/platform/config"
	perr "impfmon/internal/platform/errors"
	"impfmon/internal/services/ingest/extract"
)

// Dataset binds a built-in extraction format to where it is published
type Dataset struct {
	Name   string
	Format extract.Format
	Source source.HTTPConfig
}

// publisher locations of the built-in formats
var published = map[string]source.HTTPConfig{
	"rki-quoten": {
		PageURL:     "https://www.rki.de/DE/Content/InfAZ/N/Neuartiges_Coronavirus/Daten/Impfquoten-Tab.html",
		LinkPattern: "Impfquotenmonitoring.xlsx",
	},
	"dashboard-states": {
		URL: "https://impfdashboard.de/static/data/germany_vaccinations_by_state.tsv",
	},
	"dashboard-deliveries": {
		URL: "https://impfdashboard.de/static/data/germany_deliveries_timeseries_v2.tsv",
	},
	"pavel-series": {
		URL: "https://pavelmayer.de/covid/risks/all-series.csv",
	},
}

// Catalog lists every known dataset with CORE_SOURCE_<DATASET>_ overrides applied,
// e.g. CORE_SOURCE_DASHBOARD_STATES_URL or CORE_SOURCE_RKI_QUOTEN_PAGE_URL
func Catalog(cfg config.Conf) []Dataset {
	out := make([]Dataset, 0, len(published))
	for _, f := range extract.Builtins() {
		src := published[f.Name]
		n := cfg.Prefix("CORE_SOURCE_" + envName(f.Name) + "_")
		if u := n.MayURL("URL", ""); u != "" {
			// an explicit document URL replaces the landing page lookup
			src.URL, src.PageURL = u, ""
		}
		src.PageURL = n.MayURL("PAGE_URL", src.PageURL)
		src.LinkPattern = n.MayString("LINK_PATTERN", src.LinkPattern)
		out = append(out, Dataset{Name: f.Name, Format: f, Source: src})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a dataset by name
func Lookup(cfg config.Conf, name string) (Dataset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	var names []string
	for _, d := range Catalog(cfg) {
		if d.Name == name {
			return d, nil
		}
		names = append(names, d.Name)
	}
	return Dataset{}, perr.InvalidArgf("unknown dataset %q (known: %s)", name, strings.Join(names, ", "))
}

func envName(dataset string) string {
	return strings.ToUpper(strings.ReplaceAll(dataset, "-", "_"))
}
