package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ooh-map/internal/export"
	"github.com/sells-group/ooh-map/internal/mapview"
	"github.com/sells-group/ooh-map/internal/model"
)

// User-facing status messages.
const (
	msgCleared     = "Filtros limpos com sucesso!"
	msgLoadFailed  = "Erro ao carregar os dados. Verifique a conexão com o banco de dados."
	msgMapFailed   = "Erro ao carregar o mapa. Tente recarregar a página."
	msgExportError = "Erro ao exportar dados."
)

type errorResponse struct {
	Error string `json:"error"`
}

type clearResponse struct {
	mapview.Snapshot
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if s.loadErr != nil {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// requireData rejects API calls while the dataset is unavailable.
func (s *Server) requireData(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.loadErr != nil {
			writeError(w, http.StatusServiceUnavailable, msgLoadFailed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleTileStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tiles.Stats())
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	out := make(map[model.Facet][]string, len(model.Facets()))
	for _, f := range model.Facets() {
		out[f] = s.options.Get(f)
	}
	writeJSON(w, http.StatusOK, out)
}

// redraw renders sel and returns the snapshot. The lock is held for the
// whole render so snapshots never interleave.
func (s *Server) redraw(sel model.Selection) (mapview.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.view.Redraw(sel); err != nil {
		return mapview.Snapshot{}, err
	}
	return s.view.Snapshot(), nil
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	snap, err := s.redraw(model.SelectionFromQuery(r.URL.Query()))
	if err != nil {
		zap.L().Error("server: redraw failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgMapFailed)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var (
		data []byte
		err  error
	)
	if err = s.view.Redraw(model.SelectionFromQuery(r.URL.Query())); err == nil {
		data, err = s.view.GeoJSON()
	}
	s.mu.Unlock()

	if err != nil {
		zap.L().Error("server: geojson failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgMapFailed)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	err := s.view.Clear()
	snap := s.view.Snapshot()
	s.mu.Unlock()

	if err != nil {
		zap.L().Error("server: clear failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgMapFailed)
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{Snapshot: snap, Message: msgCleared})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := s.exporter.Export(model.SelectionFromQuery(q), format)
	if eris.Is(err, export.ErrEmptyResult) {
		writeError(w, http.StatusUnprocessableEntity, export.EmptyResultMessage)
		return
	}
	if err != nil {
		zap.L().Error("server: export failed", zap.String("format", string(format)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgExportError)
		return
	}

	zap.L().Info("export served",
		zap.String("file", f.Name),
		zap.Int("rows", f.Rows),
	)
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.Header().Set("X-Export-Rows", strconv.Itoa(f.Rows))
	_, _ = w.Write(f.Data)
}
