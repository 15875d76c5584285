// Package mapview owns the live marker set of the placement map: it runs
// filter, normalization and deduplication over the dataset on every redraw
// and keeps the resulting markers, count and viewport bounds.
package mapview

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/ooh-map/internal/coords"
	"github.com/sells-group/ooh-map/internal/dedup"
	"github.com/sells-group/ooh-map/internal/filter"
	"github.com/sells-group/ooh-map/internal/focus"
	"github.com/sells-group/ooh-map/internal/model"
)

// ErrNotInitialized is returned by Redraw before Initialize succeeded.
var ErrNotInitialized = eris.New("mapview: not initialized")

// State is the lifecycle state of a MapView.
type State int

const (
	Uninitialized State = iota
	Ready
	Rendering
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Rendering:
		return "rendering"
	default:
		return "uninitialized"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// TileLayer describes the base map tiles.
type TileLayer struct {
	URL         string `json:"url"`
	Subdomains  string `json:"subdomains"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"maxZoom"`
}

// Config is the base view and pipeline configuration.
type Config struct {
	CenterLat  float64
	CenterLng  float64
	Zoom       int
	Tiles      TileLayer
	FitPadding int
	Compare    dedup.Policy
}

// DefaultConfig centers on Brasília over the CARTO voyager tiles.
func DefaultConfig() Config {
	return Config{
		CenterLat: -15.7942,
		CenterLng: -47.8822,
		Zoom:      4,
		Tiles: TileLayer{
			URL:         "https://{s}.basemaps.cartocdn.com/rastertiles/voyager_nolabels/{z}/{x}/{y}{r}.png",
			Subdomains:  "abcd",
			Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
			MaxZoom:     19,
		},
		FitPadding: 20,
		Compare:    dedup.CompareUntrusted,
	}
}

// View is the initial viewport handed to the map client.
type View struct {
	Center [2]float64 `json:"center"`
	Zoom   int        `json:"zoom"`
	Tiles  TileLayer  `json:"tiles"`
}

// Bounds is the marker extent in degrees.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Stats counts what a redraw did with the dataset.
type Stats struct {
	Matched    int `json:"matched"`
	Invalid    int `json:"invalid"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// MapView renders the dataset for one session. It is not safe for concurrent
// use; callers serialize access.
type MapView struct {
	cfg     Config
	dataset *model.Dataset
	log     *zap.Logger
	newID   func() string

	state     State
	view      View
	selection model.Selection
	markers   []Marker
	bounds    *Bounds
	stats     Stats
}

// Option configures a MapView.
type Option func(*MapView)

// WithLogger overrides the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *MapView) { m.log = l }
}

// WithIDGenerator overrides marker id generation.
func WithIDGenerator(fn func() string) Option {
	return func(m *MapView) { m.newID = fn }
}

// New creates an uninitialized MapView over ds. A nil dataset renders as empty.
func New(ds *model.Dataset, cfg Config, opts ...Option) *MapView {
	if ds == nil {
		ds = &model.Dataset{}
	}
	m := &MapView{
		cfg:       cfg,
		dataset:   ds,
		log:       zap.L(),
		newID:     func() string { return uuid.NewString() },
		selection: model.NewSelection(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Initialize sets up the base view and moves to Ready. A view that cannot be
// mounted stays Uninitialized. Calling it again on a ready view is a no-op.
func (m *MapView) Initialize() error {
	if m.state != Uninitialized {
		return nil
	}

	c := m.cfg
	switch {
	case c.Tiles.URL == "":
		return eris.New("mapview: tile layer url is empty")
	case c.Tiles.MaxZoom <= 0:
		return eris.Errorf("mapview: invalid max zoom %d", c.Tiles.MaxZoom)
	case c.Zoom < 0 || c.Zoom > c.Tiles.MaxZoom:
		return eris.Errorf("mapview: zoom %d outside [0,%d]", c.Zoom, c.Tiles.MaxZoom)
	case c.CenterLat < -90 || c.CenterLat > 90 || c.CenterLng < -180 || c.CenterLng > 180:
		return eris.Errorf("mapview: invalid center (%v, %v)", c.CenterLat, c.CenterLng)
	}
	if _, err := dedup.ParsePolicy(string(c.Compare)); err != nil {
		return err
	}

	m.view = View{
		Center: [2]float64{c.CenterLat, c.CenterLng},
		Zoom:   c.Zoom,
		Tiles:  c.Tiles,
	}
	m.state = Ready
	m.log.Debug("mapview: initialized",
		zap.Float64("lat", c.CenterLat),
		zap.Float64("lng", c.CenterLng),
		zap.Int("zoom", c.Zoom),
		zap.Int("records", m.dataset.Len()),
	)
	return nil
}

// Redraw replaces the marker set with the image of the dataset under sel.
// Records that fail are skipped and logged; the view always returns to Ready.
func (m *MapView) Redraw(sel model.Selection) error {
	if m.state == Uninitialized {
		return ErrNotInitialized
	}

	m.state = Rendering
	defer func() { m.state = Ready }()

	m.selection = sel
	m.markers = nil
	m.bounds = nil
	m.stats = Stats{}

	dd := dedup.New(m.cfg.Compare)
	for i, rec := range m.dataset.Records {
		if mk, ok := m.renderRecord(i, rec, sel, dd); ok {
			m.markers = append(m.markers, mk)
		}
	}

	if len(m.markers) > 0 {
		m.bounds = markerBounds(m.markers)
	}

	m.log.Debug("mapview: redraw",
		zap.Int("markers", len(m.markers)),
		zap.Int("matched", m.stats.Matched),
		zap.Int("invalid", m.stats.Invalid),
		zap.Int("duplicates", m.stats.Duplicates),
		zap.Int("failed", m.stats.Failed),
	)
	return nil
}

// renderRecord runs one record through filter, normalize and dedup. A panic
// is contained to the record.
func (m *MapView) renderRecord(i int, rec model.Record, sel model.Selection, dd *dedup.Deduplicator) (mk Marker, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.stats.Failed++
			m.log.Warn("mapview: record failed", zap.Int("index", i), zap.Any("panic", r))
			ok = false
		}
	}()

	if !filter.Matches(rec, sel) {
		return Marker{}, false
	}
	m.stats.Matched++

	pt, err := coords.NormalizeRecord(rec)
	if err != nil {
		m.stats.Invalid++
		m.log.Warn("mapview: skipping record", zap.Int("index", i), zap.Error(err))
		return Marker{}, false
	}

	if dd.IsDuplicate(pt) {
		m.stats.Duplicates++
		return Marker{}, false
	}

	labels := focus.Categorize(rec.Raw(model.FieldFoco))
	popup, err := renderPopup(rec, labels)
	if err != nil {
		m.stats.Failed++
		m.log.Warn("mapview: skipping record", zap.Int("index", i), zap.Error(err))
		return Marker{}, false
	}

	id := m.newID()
	dd.Accept(pt)
	return Marker{
		ID:       id,
		Lat:      pt.Lat,
		Lng:      pt.Lng,
		Operator: pt.Operator,
		Color:    Color(pt.Operator),
		Focus:    labels,
		Popup:    popup,
		record:   rec,
	}, true
}

// markerBounds computes the marker extent. X is longitude, Y latitude.
func markerBounds(markers []Marker) *Bounds {
	pts := make([]geom.Coord, len(markers))
	for i, mk := range markers {
		pts[i] = geom.Coord{mk.Lng, mk.Lat}
	}
	b := geom.NewMultiPoint(geom.XY).MustSetCoords(pts).Bounds()
	return &Bounds{
		South: b.Min(1),
		West:  b.Min(0),
		North: b.Max(1),
		East:  b.Max(0),
	}
}

// Clear drops every facet constraint and redraws.
func (m *MapView) Clear() error {
	return m.Redraw(model.NewSelection())
}

// State returns the lifecycle state.
func (m *MapView) State() State { return m.state }

// View returns the base view set by Initialize.
func (m *MapView) View() View { return m.view }

// Count returns the number of visible markers.
func (m *MapView) Count() int { return len(m.markers) }

// Total returns the number of loaded records.
func (m *MapView) Total() int { return m.dataset.Len() }

// Selection returns the selection of the last redraw.
func (m *MapView) Selection() model.Selection { return m.selection }

// Markers returns a copy of the visible markers in dataset order.
func (m *MapView) Markers() []Marker {
	out := make([]Marker, len(m.markers))
	copy(out, m.markers)
	return out
}

// Bounds returns the marker extent, or nil when no marker is visible.
func (m *MapView) Bounds() *Bounds {
	if m.bounds == nil {
		return nil
	}
	b := *m.bounds
	return &b
}

// Padding is the fit-bounds padding in pixels.
func (m *MapView) Padding() [2]int { return [2]int{m.cfg.FitPadding, m.cfg.FitPadding} }

// Stats returns the counters of the last redraw.
func (m *MapView) Stats() Stats { return m.stats }
