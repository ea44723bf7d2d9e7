package extract

import (
	"slices"
	"sort"

	"impfmon/internal/core/cell"
)

// Metric names shared by the vaccination formats
const (
	MetricDoses          = "doses"
	MetricPeopleFirst    = "people_first"
	MetricPeopleFull     = "people_full"
	MetricDosesDelivered = "doses_delivered"
	MetricCases          = "cases"
	MetricIncidence7d    = "incidence_7d"
)

var builtins = map[string]Format{
	"rki-quoten": {
		Name:          "rki-quoten",
		Description:   "RKI Impfquotenmonitoring workbook, one row per federal state",
		RegionColumns: []string{"Bundesland", "Land"},
		DateLayouts:   []string{"2.1.2006", "2.1.06", "2006-01-02"},
		Metrics: []MetricSpec{
			{Name: MetricDoses, Cumulative: true, Synonyms: []string{
				"Gesamtzahl bisher verabreichter Impfstoffdosen",
				"Gesamtzahl bisher verabreichter Impfungen",
				"Impfungen kumulativ Gesamt",
			}},
			{Name: MetricPeopleFirst, Cumulative: true, Synonyms: []string{
				"Erstimpfung Impfungen kumulativ",
				"Eine Impfung Impfungen kumulativ",
				"Erstimpfung",
				"Mindestens einmal geimpft",
			}},
			{Name: MetricPeopleFull, Cumulative: true, Synonyms: []string{
				"Zweitimpfung Impfungen kumulativ",
				"Vollständig geimpft Impfungen kumulativ",
				"Zweitimpfung",
				"Vollständig geimpft",
			}},
		},
		Locale:      cell.DE,
		HeaderDepth: 2,
	},
	"dashboard-states": {
		Name:          "dashboard-states",
		Description:   "impfdashboard.de vaccinations by state, current totals without a date column",
		RegionColumns: []string{"code", "state", "Bundesland"},
		Metrics: []MetricSpec{
			{Name: MetricDoses, Cumulative: true, Synonyms: []string{"vaccinationsTotal", "dosen kumulativ"}},
			{Name: MetricPeopleFirst, Cumulative: true, Synonyms: []string{"peopleFirstTotal", "personen erst kumulativ"}},
			{Name: MetricPeopleFull, Cumulative: true, Synonyms: []string{"peopleFullTotal", "personen voll kumulativ"}},
		},
		Locale:      cell.EN,
		HeaderDepth: 1,
	},
	"dashboard-deliveries": {
		Name:             "dashboard-deliveries",
		Description:      "impfdashboard.de delivery time series, one row per day, state and vaccine",
		RegionColumns:    []string{"region", "code"},
		DateColumns:      []string{"date", "datum"},
		DateLayouts:      []string{"2006-01-02"},
		PartitionColumns: []string{"impfstoff"},
		Metrics: []MetricSpec{
			{Name: MetricDosesDelivered, Synonyms: []string{"dosen", "doses"}},
		},
		Locale:      cell.EN,
		HeaderDepth: 1,
	},
	"pavel-series": {
		Name:          "pavel-series",
		Description:   "pavelmayer.de county series with cumulative cases and 7-day incidence",
		RegionColumns: []string{"Landkreis"},
		DateColumns:   []string{"Datum"},
		DateLayouts:   []string{"2.1.2006", "2006-01-02"},
		Metrics: []MetricSpec{
			{Name: MetricCases, Cumulative: true, Synonyms: []string{"AnzahlFall"}},
			{Name: MetricIncidence7d, Synonyms: []string{
				"InzidenzFallNeu_7TageSumme",
				"InzidenzFallNeu-Meldung-letze-7-Tage-7-Tage",
			}},
		},
		Locale:      cell.EN,
		HeaderDepth: 1,
	},
}

// Builtin returns the named built-in format
func Builtin(name string) (Format, bool) {
	f, ok := builtins[name]
	if !ok {
		return Format{}, false
	}
	return clone(f), true
}

// Builtins lists all built-in formats sorted by name
func Builtins() []Format {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]Format, 0, len(names))
	for _, n := range names {
		out = append(out, clone(builtins[n]))
	}
	return out
}

func clone(f Format) Format {
	f.RegionColumns = slices.Clone(f.RegionColumns)
	f.DateColumns = slices.Clone(f.DateColumns)
	f.DateLayouts = slices.Clone(f.DateLayouts)
	f.PartitionColumns = slices.Clone(f.PartitionColumns)
	ms := make([]MetricSpec, len(f.Metrics))
	for i, m := range f.Metrics {
		m.Synonyms = slices.Clone(m.Synonyms)
		ms[i] = m
	}
	f.Metrics = ms
	return f
}
