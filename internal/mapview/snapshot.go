package mapview

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/ooh-map/internal/model"
)

// NoPointsNotice is shown when a redraw yields no marker.
const NoPointsNotice = "Nenhum ponto encontrado para os filtros selecionados."

// Snapshot is the rendered state handed to the map client.
type Snapshot struct {
	State     State                    `json:"state"`
	View      View                     `json:"view"`
	Selection map[model.Facet][]string `json:"selection"`
	Count     int                      `json:"count"`
	Label     string                   `json:"label"`
	Total     int                      `json:"total"`
	Bounds    *Bounds                  `json:"bounds,omitempty"`
	Padding   [2]int                   `json:"padding"`
	Stats     Stats                    `json:"stats"`
	Notice    string                   `json:"notice,omitempty"`
	Markers   []Marker                 `json:"markers"`
}

// CountLabel is the point-count readout text.
func CountLabel(n int) string {
	return fmt.Sprintf("Total de pontos: %d", n)
}

// Snapshot captures the current render.
func (m *MapView) Snapshot() Snapshot {
	s := Snapshot{
		State:     m.state,
		View:      m.view,
		Selection: m.selection.Map(),
		Count:     m.Count(),
		Label:     CountLabel(m.Count()),
		Total:     m.Total(),
		Bounds:    m.Bounds(),
		Padding:   m.Padding(),
		Stats:     m.stats,
		Markers:   m.Markers(),
	}
	if s.Count == 0 && m.state == Ready {
		s.Notice = NoPointsNotice
	}
	return s
}

// FeatureCollection returns the visible markers as GeoJSON point features.
func (m *MapView) FeatureCollection() *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(m.markers))}
	for _, mk := range m.markers {
		props := map[string]interface{}{
			"operadora": mk.Operator,
			"color":     mk.Color,
			"foco":      mk.Focus,
		}
		for _, f := range []string{model.FieldUF, model.FieldCidade, model.FieldPeriodo, model.FieldTipo, model.FieldEndereco, model.FieldBairro} {
			if v := mk.record.Raw(f); v != nil {
				props[f] = *v
			}
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         mk.ID,
			Geometry:   geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{mk.Lng, mk.Lat}),
			Properties: props,
		})
	}
	if b := m.bounds; b != nil {
		fc.BBox = geom.NewBounds(geom.XY).Set(b.West, b.South, b.East, b.North)
	}
	return fc
}

// GeoJSON encodes FeatureCollection.
func (m *MapView) GeoJSON() ([]byte, error) {
	data, err := json.Marshal(m.FeatureCollection())
	if err != nil {
		return nil, eris.Wrap(err, "mapview: encode geojson")
	}
	return data, nil
}
