package server

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/ooh-map/internal/mapview"
	"github.com/sells-group/ooh-map/internal/model"
	"github.com/sells-group/ooh-map/internal/tiles"
)

// facetControl describes one multi-select on the page.
type facetControl struct {
	ID      string
	Param   string
	Label   string
	Options []string
}

var facetControls = []struct {
	facet model.Facet
	id    string
	label string
}{
	{model.FacetUF, "filtroUF", "Estado (UF)"},
	{model.FacetOperadora, "filtroOperadora", "Operadora"},
	{model.FacetData, "filtroData", "Período"},
	{model.FacetTipo, "filtroTipoComunicacao", "Tipo de Comunicação"},
	{model.FacetFoco, "filtroFoco", "Foco da Comunicação"},
}

// clientConfig is embedded in the page as the map bootstrap.
type clientConfig struct {
	View    mapview.View      `json:"view"`
	Padding [2]int            `json:"padding"`
	Facets  map[string]string `json:"facets"` // select id -> query parameter
}

type pageData struct {
	Error    string
	Facets   []facetControl
	Legend   []mapview.LegendEntry
	Total    int
	Config   clientConfig
	Messages map[string]string
}

func (s *Server) pageData() pageData {
	d := pageData{Legend: mapview.Legend()}
	if s.loadErr != nil {
		d.Error = msgLoadFailed
		return d
	}

	d.Config.Facets = make(map[string]string, len(facetControls))
	for _, fc := range facetControls {
		d.Facets = append(d.Facets, facetControl{
			ID:      fc.id,
			Param:   string(fc.facet),
			Label:   fc.label,
			Options: s.options.Get(fc.facet),
		})
		d.Config.Facets[fc.id] = string(fc.facet)
	}

	s.mu.Lock()
	d.Config.View = s.view.View()
	d.Config.Padding = s.view.Padding()
	d.Total = s.view.Total()
	s.mu.Unlock()

	if s.tiles != nil {
		d.Config.View.Tiles.URL = tiles.Template
		d.Config.View.Tiles.Subdomains = ""
	}

	d.Messages = map[string]string{
		"cleared":     msgCleared,
		"loaded":      "Mapa carregado com sucesso!",
		"mapFailed":   msgMapFailed,
		"exported":    "Dados exportados com sucesso!",
		"exportError": msgExportError,
	}
	return d
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, s.pageData()); err != nil {
		zap.L().Error("server: render page", zap.Error(err))
		http.Error(w, msgMapFailed, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.loadErr != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_, _ = buf.WriteTo(w)
}
