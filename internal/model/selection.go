package model

import (
	"net/url"
	"sort"
	"strings"
)

// Facet is one independent filter dimension.
type Facet string

const (
	FacetUF        Facet = "uf"
	FacetOperadora Facet = "operadora"
	FacetData      Facet = "data"
	FacetTipo      Facet = "tipo"
	FacetFoco      Facet = "foco"
)

// Facets returns all facets in display order.
func Facets() []Facet {
	return []Facet{FacetUF, FacetOperadora, FacetData, FacetTipo, FacetFoco}
}

// Field returns the record field a facet reads.
func (f Facet) Field() string {
	switch f {
	case FacetUF:
		return FieldUF
	case FacetOperadora:
		return FieldOperadora
	case FacetData:
		return FieldPeriodo
	case FacetTipo:
		return FieldTipo
	case FacetFoco:
		return FieldFoco
	}
	return ""
}

// Valid reports whether f is one of the five known facets.
func (f Facet) Valid() bool {
	return f.Field() != ""
}

// Selection holds the selected values per facet. An empty facet means no
// constraint, not "reject everything". The zero value is an empty selection.
type Selection struct {
	values map[Facet]map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() Selection {
	return Selection{values: make(map[Facet]map[string]struct{})}
}

// Add selects vals for facet f. Blank values and unknown facets are ignored.
func (s *Selection) Add(f Facet, vals ...string) {
	if !f.Valid() {
		return
	}
	if s.values == nil {
		s.values = make(map[Facet]map[string]struct{})
	}
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		set, ok := s.values[f]
		if !ok {
			set = make(map[string]struct{})
			s.values[f] = set
		}
		set[v] = struct{}{}
	}
}

// Active reports whether facet f constrains records.
func (s Selection) Active(f Facet) bool {
	return len(s.values[f]) > 0
}

// Has reports whether v is selected for facet f.
func (s Selection) Has(f Facet, v string) bool {
	_, ok := s.values[f][v]
	return ok
}

// Values returns the sorted selected values for facet f.
func (s Selection) Values(f Facet) []string {
	set := s.values[f]
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// IsEmpty reports whether no facet is constrained.
func (s Selection) IsEmpty() bool {
	for _, set := range s.values {
		if len(set) > 0 {
			return false
		}
	}
	return true
}

// SelectionFromQuery reads repeated facet parameters (?uf=SP&uf=RJ).
func SelectionFromQuery(q url.Values) Selection {
	sel := NewSelection()
	for _, f := range Facets() {
		sel.Add(f, q[string(f)]...)
	}
	return sel
}

// Query encodes the selection as URL query values.
func (s Selection) Query() url.Values {
	q := url.Values{}
	for _, f := range Facets() {
		for _, v := range s.Values(f) {
			q.Add(string(f), v)
		}
	}
	return q
}

// Map returns every facet with its sorted selected values.
func (s Selection) Map() map[Facet][]string {
	out := make(map[Facet][]string, len(s.values))
	for _, f := range Facets() {
		out[f] = s.Values(f)
	}
	return out
}

func sortStrings(s []string) { sort.Strings(s) }
