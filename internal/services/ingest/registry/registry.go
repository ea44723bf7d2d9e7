// Package registry is the versioned region reference table: canonical ids,
// display names, aliases and population. It is loaded once per run and never
// mutated by ingestion
package registry

import (
	"slices"
	"strings"
	"unicode"

	"impfmon/internal/core/change"
	"impfmon/internal/core/normalize"
	"impfmon/internal/services/ingest/domain"

	"github.com/antzucaro/matchr"
)

// suggestMin is the Jaro-Winkler similarity below which no suggestion is offered
const suggestMin = 0.80

// Registry implements domain.Registry
type Registry struct {
	source  string
	version change.Token
	regions []domain.Region
	byID    map[string]int
	byKey   map[string]int
}

var _ domain.Registry = (*Registry)(nil)

// Source names where the registry was loaded from
func (r *Registry) Source() string { return r.source }

// Version is the content fingerprint of the registry file
func (r *Registry) Version() change.Token { return r.version }

// Len returns the number of regions
func (r *Registry) Len() int { return len(r.regions) }

// Regions returns all regions in file order
func (r *Registry) Regions() []domain.Region {
	out := make([]domain.Region, len(r.regions))
	for i, reg := range r.regions {
		out[i] = clone(reg)
	}
	return out
}

// Lookup finds a region by canonical id (case-insensitive)
func (r *Registry) Lookup(id string) (domain.Region, bool) {
	i, ok := r.byID[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return domain.Region{}, false
	}
	return clone(r.regions[i]), true
}

// Resolve maps a publisher label (id, name or alias in any spelling the
// normalizer folds together) to its region. Trailing footnote numbers such as
// "Bayern 1)" are tolerated
func (r *Registry) Resolve(label string) (domain.Region, bool) {
	if reg, ok := r.Lookup(label); ok {
		return reg, true
	}
	key := normalize.Key(label)
	if key == "" {
		return domain.Region{}, false
	}
	if i, ok := r.byKey[key]; ok {
		return clone(r.regions[i]), true
	}
	if trimmed := trimNumericTail(key); trimmed != key && trimmed != "" {
		if i, ok := r.byKey[trimmed]; ok {
			return clone(r.regions[i]), true
		}
	}
	return domain.Region{}, false
}

// Suggest returns the display name of the closest known region for an
// unrecognised label, or "" when nothing is reasonably close
func (r *Registry) Suggest(label string) string {
	key := normalize.Key(label)
	if key == "" {
		return ""
	}
	best, bestScore := "", 0.0
	for k, i := range r.byKey {
		score := matchr.JaroWinkler(key, k, false)
		name := r.regions[i].Name
		// map iteration order is random; break ties by name so output is stable
		if score > bestScore || (score == bestScore && name < best) {
			best, bestScore = name, score
		}
	}
	if bestScore < suggestMin {
		return ""
	}
	return best
}

// Population returns the population of id; false when unknown or not recorded
func (r *Registry) Population(id string) (int64, bool) {
	reg, ok := r.Lookup(id)
	if !ok || reg.Population <= 0 {
		return 0, false
	}
	return reg.Population, true
}

func clone(reg domain.Region) domain.Region {
	reg.Aliases = slices.Clone(reg.Aliases)
	return reg
}

func trimNumericTail(key string) string {
	fields := strings.Fields(key)
	for len(fields) > 1 && isDigits(fields[len(fields)-1]) {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
