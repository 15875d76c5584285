// Package filter evaluates placement records against a facet selection and
// derives the selectable values for each facet.
package filter

import (
	"github.com/sells-group/ooh-map/internal/focus"
	"github.com/sells-group/ooh-map/internal/model"
)

// Matches reports whether rec passes every facet of sel. Facets are ANDed; an
// empty facet passes everything. For the focus facet any one of the record's
// categorized labels must be selected. A record missing the field of an active
// facet never matches it.
func Matches(rec model.Record, sel model.Selection) bool {
	for _, f := range model.Facets() {
		if !sel.Active(f) {
			continue
		}
		if !matchesFacet(rec, sel, f) {
			return false
		}
	}
	return true
}

func matchesFacet(rec model.Record, sel model.Selection, f model.Facet) bool {
	if f == model.FacetFoco {
		for _, label := range focus.Categorize(rec.Raw(f.Field())) {
			if sel.Has(f, label) {
				return true
			}
		}
		return false
	}

	v := rec.Trimmed(f.Field())
	if v == "" {
		return false
	}
	return sel.Has(f, v)
}

// Apply returns the records passing sel, in source order.
func Apply(records []model.Record, sel model.Selection) []model.Record {
	if sel.IsEmpty() {
		out := make([]model.Record, len(records))
		copy(out, records)
		return out
	}
	out := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if Matches(rec, sel) {
			out = append(out, rec)
		}
	}
	return out
}

// Count returns how many records pass sel.
func Count(records []model.Record, sel model.Selection) int {
	n := 0
	for _, rec := range records {
		if Matches(rec, sel) {
			n++
		}
	}
	return n
}
