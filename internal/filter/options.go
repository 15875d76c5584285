package filter

import (
	"sort"

	"github.com/sells-group/ooh-map/internal/focus"
	"github.com/sells-group/ooh-map/internal/model"
)

// Options lists the selectable values of every facet, sorted ascending.
type Options map[model.Facet][]string

// Get returns the values for facet f (never nil).
func (o Options) Get(f model.Facet) []string {
	if v, ok := o[f]; ok {
		return v
	}
	return []string{}
}

// Total returns the number of options across all facets.
func (o Options) Total() int {
	n := 0
	for _, v := range o {
		n += len(v)
	}
	return n
}

// BuildOptions collects the distinct non-empty trimmed values per facet. The
// focus facet offers the union of categorized labels. Run once per dataset.
func BuildOptions(records []model.Record) Options {
	sets := make(map[model.Facet]map[string]struct{}, len(model.Facets()))
	for _, f := range model.Facets() {
		sets[f] = make(map[string]struct{})
	}

	for _, rec := range records {
		for _, f := range model.Facets() {
			if f == model.FacetFoco {
				for _, label := range focus.Categorize(rec.Raw(f.Field())) {
					sets[f][label] = struct{}{}
				}
				continue
			}
			if v := rec.Trimmed(f.Field()); v != "" {
				sets[f][v] = struct{}{}
			}
		}
	}

	opts := make(Options, len(sets))
	for f, set := range sets {
		vals := make([]string, 0, len(set))
		for v := range set {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		opts[f] = vals
	}
	return opts
}
