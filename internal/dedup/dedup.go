// Package dedup suppresses near-coincident placement points.
//
// Points from the trusted operator are exact addresses and collapse only on an
// identical key (operator, lat, lng). Points from every other operator are
// jittery and collapse when they fall within RadiusKM of an earlier comparable
// point. The first point seen always wins; later duplicates are dropped.
package dedup

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/ooh-map/internal/coords"
)

// RadiusKM is the proximity threshold for untrusted operators. Distances
// strictly below it are duplicates.
const RadiusKM = 0.5

// Policy selects which accepted points an untrusted candidate is compared to.
type Policy string

const (
	// CompareUntrusted compares untrusted candidates only against accepted
	// untrusted points, so a trusted point never hides a nearby untrusted one.
	CompareUntrusted Policy = "trusted_excluded"
	// CompareAll compares untrusted candidates against every accepted point.
	CompareAll Policy = "all"
)

// ParsePolicy validates a configured policy name. Empty means CompareUntrusted.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", CompareUntrusted:
		return CompareUntrusted, nil
	case CompareAll:
		return CompareAll, nil
	}
	return "", eris.Errorf("dedup: unknown compare policy %q", s)
}

type exactKey struct {
	operator string
	lat, lng float64
}

// Deduplicator tracks the points accepted during one redraw. It is not safe
// for concurrent use.
type Deduplicator struct {
	policy   Policy
	radiusKM float64

	accepted  []coords.Point
	untrusted []coords.Point
	exact     map[exactKey]struct{}
}

// New returns an empty Deduplicator using policy.
func New(policy Policy) *Deduplicator {
	if policy == "" {
		policy = CompareUntrusted
	}
	return &Deduplicator{
		policy:   policy,
		radiusKM: RadiusKM,
		exact:    make(map[exactKey]struct{}),
	}
}

// Policy returns the comparison policy in use.
func (d *Deduplicator) Policy() Policy { return d.policy }

// IsDuplicate reports whether p duplicates an already accepted point.
func (d *Deduplicator) IsDuplicate(p coords.Point) bool {
	if p.Trusted() {
		_, ok := d.exact[exactKey{operator: p.Operator, lat: p.Lat, lng: p.Lng}]
		return ok
	}

	candidates := d.untrusted
	if d.policy == CompareAll {
		candidates = d.accepted
	}
	for _, q := range candidates {
		if coords.DistanceKM(q, p) < d.radiusKM {
			return true
		}
	}
	return false
}

// Accept records p unless it is a duplicate. It returns true when p was kept.
func (d *Deduplicator) Accept(p coords.Point) bool {
	if d.IsDuplicate(p) {
		return false
	}
	d.accepted = append(d.accepted, p)
	if p.Trusted() {
		d.exact[exactKey{operator: p.Operator, lat: p.Lat, lng: p.Lng}] = struct{}{}
	} else {
		d.untrusted = append(d.untrusted, p)
	}
	return true
}

// Accepted returns the kept points in acceptance order.
func (d *Deduplicator) Accepted() []coords.Point {
	out := make([]coords.Point, len(d.accepted))
	copy(out, d.accepted)
	return out
}

// Len returns the number of kept points.
func (d *Deduplicator) Len() int { return len(d.accepted) }

// Reset forgets every accepted point.
func (d *Deduplicator) Reset() {
	d.accepted = d.accepted[:0]
	d.untrusted = d.untrusted[:0]
	clear(d.exact)
}

// Unique runs points through a fresh Deduplicator and returns the survivors.
func Unique(points []coords.Point, policy Policy) []coords.Point {
	d := New(policy)
	for _, p := range points {
		d.Accept(p)
	}
	return d.Accepted()
}
