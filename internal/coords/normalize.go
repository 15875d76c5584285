// Package coords parses locale-formatted coordinates, snaps imprecise sources
// to a fixed grid and measures great-circle distance.
package coords

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ooh-map/internal/model"
)

// Precision is the number of decimal places kept for non-trusted operators.
const Precision = 5

// ErrInvalidCoordinate marks a latitude/longitude pair that cannot be placed
// on the map. Records failing with it are skipped, never surfaced.
var ErrInvalidCoordinate = eris.New("coords: invalid coordinate")

// Point is a normalized, renderable location tagged with its operator.
type Point struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Operator string  `json:"operadora"`
}

// Trusted reports whether the point comes from the exact-address operator.
func (p Point) Trusted() bool {
	return p.Operator == model.TrustedOperator
}

// Parse reads a decimal that may use a comma as decimal separator.
func Parse(raw *string) (float64, error) {
	if raw == nil {
		return 0, eris.Wrap(ErrInvalidCoordinate, "missing value")
	}
	s := strings.TrimSpace(strings.Replace(*raw, ",", ".", 1))
	if s == "" {
		return 0, eris.Wrap(ErrInvalidCoordinate, "empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(ErrInvalidCoordinate, "parse %q", *raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Wrapf(ErrInvalidCoordinate, "non-finite %q", *raw)
	}
	return v, nil
}

// Normalize parses and validates a coordinate pair. Points from any operator
// other than the trusted one are truncated to Precision decimals.
func Normalize(lat, lng *string, operator string) (Point, error) {
	la, err := Parse(lat)
	if err != nil {
		return Point{}, eris.Wrap(err, "latitude")
	}
	lo, err := Parse(lng)
	if err != nil {
		return Point{}, eris.Wrap(err, "longitude")
	}
	if la < -90 || la > 90 {
		return Point{}, eris.Wrapf(ErrInvalidCoordinate, "latitude %v out of range", la)
	}
	if lo < -180 || lo > 180 {
		return Point{}, eris.Wrapf(ErrInvalidCoordinate, "longitude %v out of range", lo)
	}

	p := Point{Lat: la, Lng: lo, Operator: operator}
	if !p.Trusted() {
		p.Lat = Truncate(p.Lat, Precision)
		p.Lng = Truncate(p.Lng, Precision)
	}
	return p, nil
}

// NormalizeRecord normalizes the LATITUDE/LONGITUDE fields of rec.
func NormalizeRecord(rec model.Record) (Point, error) {
	return Normalize(rec.Raw(model.FieldLatitude), rec.Raw(model.FieldLongitude), rec.Operator())
}

// Truncate drops digits past places decimals toward zero. A value that is
// already the float nearest a grid point (0.29 scales to 28.999999999999996)
// is kept, so Truncate is idempotent.
func Truncate(x float64, places int) float64 {
	factor := math.Pow10(places)
	scaled := x * factor
	if r := math.Round(scaled); r/factor == x {
		return x
	}
	return math.Trunc(scaled) / factor
}
