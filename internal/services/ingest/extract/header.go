package extract

import (
	"strings"

	"impfmon/internal/adapters/tabular"
	"impfmon/internal/core/cell"
	"impfmon/internal/core/normalize"
)

// layout is where the signature was found and which column carries what
type layout struct {
	table     int
	headerRow int
	dataRow   int
	labels    []string
	region    int
	date      int
	parts     []int
	metrics   []int
}

// locate finds the first table and row whose labels satisfy f. A header where
// every column matches exactly is preferred over one found by word containment
func locate(f Format, tables []tabular.Table) (layout, bool) {
	for _, loose := range []bool{false, true} {
		for ti, t := range tables {
			limit := min(f.scanRows(), len(t.Rows))
			for r := 0; r < limit; r++ {
				for _, depth := range depthsFor(f, t, r) {
					labels := headerLabels(t, r, depth)
					if lay, ok := match(f, labels, loose); ok {
						lay.table, lay.headerRow, lay.dataRow = ti, r, r+depth
						return lay, true
					}
				}
			}
		}
	}
	return layout{}, false
}

// depthsFor tries the two-row header first when the upper row has several labels
// and the row below holds no numbers
func depthsFor(f Format, t tabular.Table, r int) []int {
	if f.depth() == 2 && r+1 < len(t.Rows) && filled(t.Rows[r]) > 1 && !hasNumber(t.Rows[r+1], f.Locale) {
		return []int{2, 1}
	}
	return []int{1}
}

func filled(row []string) int {
	n := 0
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

func hasNumber(row []string, loc cell.Locale) bool {
	for _, v := range row {
		if cell.Parse(v, loc).IsNumber() {
			return true
		}
	}
	return false
}

// headerLabels joins a two-row header into one key per column. A blank upper cell
// inherits the label to its left when the lower cell is set (merged group headers)
func headerLabels(t tabular.Table, r, depth int) []string {
	upper := t.Rows[r]
	if depth == 1 {
		out := make([]string, len(upper))
		for c, v := range upper {
			out[c] = normalize.Key(v)
		}
		return out
	}
	lower := t.Rows[r+1]
	width := max(len(upper), len(lower))
	out := make([]string, width)
	carry := ""
	for c := 0; c < width; c++ {
		u, l := normalize.Key(t.Cell(r, c)), normalize.Key(t.Cell(r+1, c))
		switch {
		case u != "":
			carry = u
		case l != "":
			u = carry
		}
		out[c] = strings.TrimSpace(u + " " + l)
	}
	return out
}

// match assigns columns: exact label matches are claimed first, then (when loose)
// labels containing the synonym as whole words. The leftmost qualifying column wins
func match(f Format, labels []string, loose bool) (layout, bool) {
	claimed := map[int]bool{}
	lay := layout{labels: labels, date: -1}

	find := func(synonyms []string) int {
		if c := findWith(labels, synonyms, claimed, equalKey); c >= 0 || !loose {
			return c
		}
		return findWith(labels, synonyms, claimed, containsKey)
	}

	if lay.region = find(f.RegionColumns); lay.region < 0 {
		return layout{}, false
	}
	if len(f.DateColumns) > 0 {
		if lay.date = find(f.DateColumns); lay.date < 0 {
			return layout{}, false
		}
	}
	for _, p := range f.PartitionColumns {
		c := find([]string{p})
		if c < 0 {
			return layout{}, false
		}
		lay.parts = append(lay.parts, c)
	}

	lay.metrics = make([]int, len(f.Metrics))
	for i, m := range f.Metrics {
		lay.metrics[i] = findWith(labels, m.Synonyms, claimed, equalKey)
	}
	for i, m := range f.Metrics {
		if lay.metrics[i] < 0 && loose {
			lay.metrics[i] = findWith(labels, m.Synonyms, claimed, containsKey)
		}
		if lay.metrics[i] < 0 {
			return layout{}, false
		}
	}
	return lay, true
}

func findWith(labels, synonyms []string, claimed map[int]bool, eq func(label, syn string) bool) int {
	for _, syn := range synonyms {
		k := normalize.Key(syn)
		if k == "" {
			continue
		}
		for c, l := range labels {
			if !claimed[c] && l != "" && eq(l, k) {
				claimed[c] = true
				return c
			}
		}
	}
	return -1
}

func equalKey(label, syn string) bool { return label == syn }

func containsKey(label, syn string) bool {
	return strings.Contains(" "+label+" ", " "+syn+" ")
}
