package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/ooh-map/internal/config"
	"github.com/sells-group/ooh-map/internal/export"
	"github.com/sells-group/ooh-map/internal/filter"
	"github.com/sells-group/ooh-map/internal/mapview"
	"github.com/sells-group/ooh-map/internal/model"
	"github.com/sells-group/ooh-map/internal/tiles"
)

func testDataset() *model.Dataset {
	row := func(uf, op, lat, lng string) model.Record {
		return model.Record{
			model.FieldUF:        model.Str(uf),
			model.FieldOperadora: model.Str(op),
			model.FieldCidade:    model.Str("Cidade " + uf),
			model.FieldLatitude:  model.Str(lat),
			model.FieldLongitude: model.Str(lng),
		}
	}
	return &model.Dataset{
		Columns: []string{model.FieldUF, model.FieldOperadora, model.FieldCidade, model.FieldLatitude, model.FieldLongitude},
		Records: []model.Record{
			row("SP", "CLARO", "-23,55052", "-46,63331"),
			row("RJ", "VIVO", "-22,90685", "-43,17290"),
			row("MG", "TIM", "sem coordenada", "-43,93450"),
		},
	}
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{Port: 8080, AllowedOrigins: []string{"*"}}
}

func newTestServer(t *testing.T, cfg config.ServerConfig, opts ...Option) *Server {
	t.Helper()
	ds := testDataset()
	view := mapview.New(ds, mapview.DefaultConfig(), mapview.WithLogger(zap.NewNop()))
	require.NoError(t, view.Initialize())
	clock := func() time.Time { return time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC) }
	return New(cfg, view, export.New(ds, export.WithClock(clock)), filter.BuildOptions(ds.Records), opts...)
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPage(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Mapa Interativo - Monitoramento de Mídias OOH</title>")
	for _, id := range []string{"filtroUF", "filtroOperadora", "filtroData", "filtroTipoComunicacao", "filtroFoco"} {
		assert.Contains(t, body, `id="`+id+`"`)
	}
	assert.Contains(t, body, `<option value="SP">SP</option>`)
	assert.Contains(t, body, "Legenda das Operadoras")
	assert.Contains(t, body, "leaflet@1.9.4")
	assert.Contains(t, body, "window.OOH_CONFIG")
	assert.NotContains(t, body, "role=\"alert\"")
}

func TestTileProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer upstream.Close()

	proxy := tiles.NewProxy(upstream.URL+"/{z}/{x}/{y}{r}.png", "", tiles.NewCache(16, time.Hour))
	h := newTestServer(t, testServerConfig(), WithTileProxy(proxy)).Handler()

	rec := do(t, h, http.MethodGet, "/tiles/2/1/3.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/2/1/3.png", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/tiles/2/1/3.png")
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))

	rec = do(t, h, http.MethodGet, "/tiles/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hits":1`)

	rec = do(t, h, http.MethodGet, "/")
	assert.NotContains(t, rec.Body.String(), "basemaps.cartocdn.com", "page loads tiles through the proxy")
}

func TestTileProxy_Disabled(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/tiles/2/1/3.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticAssets(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/static/mapa.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marcador-customizado")
}

func TestStaticAssets_DropsSupersededResponses(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/static/mapa.js")
	require.Equal(t, http.StatusOK, rec.Code)
	js := rec.Body.String()

	// Redraw and clear both take a ticket and render only while it is current.
	assert.Equal(t, 2, strings.Count(js, "var seq = ++renderSeq;"))
	assert.Equal(t, 2, strings.Count(js, "if (seq !== renderSeq) { return"))
	assert.Equal(t, 2, strings.Count(js, "if (seq === renderSeq) { showMessage(messages.mapFailed"))
	assert.Less(t, strings.Index(js, "if (seq !== renderSeq)"), strings.Index(js, "render(snap);"))
}

func TestOptions(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/api/options")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"MG", "RJ", "SP"}, body["uf"])
	assert.Equal(t, []string{"CLARO", "TIM", "VIVO"}, body["operadora"])
	assert.Equal(t, []string{}, body["foco"])
}

func TestMarkers(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/api/markers")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeSnapshot(t, rec)
	assert.EqualValues(t, 2, body["count"])
	assert.Equal(t, "Total de pontos: 2", body["label"])
	assert.EqualValues(t, 3, body["total"])
	assert.NotNil(t, body["bounds"])
	assert.Len(t, body["markers"], 2)

	rec = do(t, h, http.MethodGet, "/api/markers?uf=SP&uf=MG")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeSnapshot(t, rec)
	assert.EqualValues(t, 1, body["count"])
	markers := body["markers"].([]any)
	assert.Equal(t, "#f20000", markers[0].(map[string]any)["color"])
}

func TestMarkers_NoMatch(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/api/markers?operadora=NIO")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeSnapshot(t, rec)
	assert.EqualValues(t, 0, body["count"])
	assert.Equal(t, mapview.NoPointsNotice, body["notice"])
	assert.Nil(t, body["bounds"])
	assert.Empty(t, body["markers"])
}

func TestMarkersGeoJSON(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/api/markers.geojson?operadora=VIVO")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "VIVO", fc.Features[0].Properties["operadora"])
}

func TestClear(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	do(t, h, http.MethodGet, "/api/markers?uf=SP")

	rec := do(t, h, http.MethodPost, "/api/clear")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeSnapshot(t, rec)
	assert.Equal(t, "Filtros limpos com sucesso!", body["message"])
	assert.EqualValues(t, 2, body["count"])

	rec = do(t, h, http.MethodGet, "/api/clear")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestExportCSV(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/api/export?uf=RJ")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv;charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="mapa_dados_2024-03-06.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", rec.Header().Get("X-Export-Rows"))
	assert.Equal(t,
		"UF,OPERADORA,CIDADE,LATITUDE,LONGITUDE\n"+`"RJ","VIVO","Cidade RJ","-22,90685","-43,17290"`,
		rec.Body.String(),
	)
}

func TestExport_IncludesRecordsWithoutCoordinates(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/api/export?format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-Export-Rows"))
	assert.Contains(t, rec.Body.String(), `"sem coordenada"`)
}

func TestExport_Formats(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/api/export?format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasSuffix(rec.Header().Get("Content-Disposition"), `.xlsx"`))

	rec = do(t, h, http.MethodGet, "/api/export?format=shp")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2", rec.Header().Get("X-Export-Rows"))
}

func TestExport_Empty(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/api/export?operadora=NIO")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"Nenhum dado para exportar."}`, rec.Body.String())
}

func TestExport_BadFormat(t *testing.T) {
	h := newTestServer(t, testServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/api/export?format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown format")
}

func TestUnavailable(t *testing.T) {
	h := NewUnavailable(testServerConfig(), errors.New("connection refused")).Handler()

	rec := do(t, h, http.MethodGet, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Verifique a conexão com o banco de dados.")
	assert.NotContains(t, rec.Body.String(), `id="map"`)

	for _, path := range []string{"/api/options", "/api/markers", "/api/export"} {
		rec = do(t, h, http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}

	rec = do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"degraded"}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	h := newTestServer(t, cfg).Handler()

	rec := do(t, h, http.MethodGet, "/api/options")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/options")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code, "health is not limited")
}

func TestClientLimiter_PrunesIdleClients(t *testing.T) {
	l := newClientLimiter(1, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 1024; i++ {
		l.allow(strings.Repeat("x", i+1))
	}
	require.Len(t, l.clients, 1024)

	now = now.Add(limiterIdle + time.Second)
	assert.True(t, l.allow("fresh"))
	assert.Len(t, l.clients, 1)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	cfg := testServerConfig()
	cfg.Port = 0
	s := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
