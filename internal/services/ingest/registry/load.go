package registry

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"impfmon/internal/core/change"
	"impfmon/internal/core/normalize"
	perr "impfmon/internal/platform/errors"
	pstrings "impfmon/internal/platform/strings"
	"impfmon/internal/platform/validate"
	"impfmon/internal/services/ingest/domain"
)

//go:embed regions_de.csv
var defaultCSV []byte

// Default returns the embedded registry of German states, the country total
// and the ignored federal delivery row
func Default() *Registry {
	r, err := Parse(defaultCSV, "embedded:regions_de.csv")
	if err != nil {
		panic("registry: embedded regions are invalid: " + err.Error())
	}
	return r
}

// Load reads a registry CSV from path. Empty path means Default()
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "region registry %s", path)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "read region registry %s", path)
	}
	return Parse(b, path)
}

var requiredCols = []string{"id", "name", "kind"}

// Parse builds a registry from CSV bytes with header
// id,name,kind[,population][,aliases][,ignored]; aliases are '|' separated
func Parse(b []byte, source string) (*Registry, error) {
	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "region registry %s: missing header", source)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredCols {
		if _, ok := cols[c]; !ok {
			return nil, perr.Validationf("region registry %s: missing column %q", source, c)
		}
	}
	get := func(rec []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	reg := &Registry{
		source:  source,
		version: change.TokenOf(b),
		byID:    map[string]int{},
		byKey:   map[string]int{},
	}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "region registry %s line %d", source, line)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		r := domain.Region{
			ID:      strings.ToUpper(get(rec, "id")),
			Name:    normalize.Label(get(rec, "name")),
			Kind:    domain.RegionKind(strings.ToLower(get(rec, "kind"))),
			Aliases: pstrings.SplitTrim(get(rec, "aliases"), "|"),
		}
		if p := get(rec, "population"); p != "" {
			n, err := strconv.ParseInt(strings.ReplaceAll(p, "_", ""), 10, 64)
			if err != nil {
				return nil, perr.Validationf("region registry %s line %d: population %q is not an integer", source, line, p)
			}
			r.Population = n
		}
		if ig := get(rec, "ignored"); ig != "" {
			v, ok := parseBool(ig)
			if !ok {
				return nil, perr.Validationf("region registry %s line %d: ignored %q is not a boolean", source, line, ig)
			}
			r.Ignored = v
		}
		if err := validate.Struct(r); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "region registry %s line %d", source, line)
		}
		if err := reg.add(r); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "region registry %s line %d", source, line)
		}
	}
	if len(reg.regions) == 0 {
		return nil, perr.Validationf("region registry %s has no regions", source)
	}
	return reg, nil
}

// add indexes r by id, name and aliases; any key already claimed by another region is an error
func (reg *Registry) add(r domain.Region) error {
	if _, dup := reg.byID[r.ID]; dup {
		return perr.Validationf("duplicate region id %s", r.ID)
	}
	idx := len(reg.regions)
	keys := append([]string{r.ID, r.Name}, r.Aliases...)
	for _, label := range keys {
		k := normalize.Key(label)
		if k == "" {
			continue
		}
		if other, taken := reg.byKey[k]; taken && other != idx {
			return perr.Validationf("label %q of %s is already used by %s", label, r.ID, reg.regions[other].ID)
		}
		reg.byKey[k] = idx
	}
	reg.byID[r.ID] = idx
	reg.regions = append(reg.regions, r)
	return nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "x":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	}
	return false, false
}
