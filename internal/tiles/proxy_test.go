package tiles

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstream(t *testing.T, calls *atomic.Int32, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("tile:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProxy_URL(t *testing.T) {
	p := NewProxy("https://{s}.tiles.example/{z}/{x}/{y}{r}.png", "abc", nil)

	assert.Equal(t, "https://a.tiles.example/4/5/6.png", p.URL(Coord{Z: 4, X: 5, Y: 6}))
	assert.Equal(t, "https://b.tiles.example/4/5/6@2x.png", p.URL(Coord{Z: 4, X: 5, Y: 6, Retina: true}))
	assert.Equal(t, "https://c.tiles.example/0/0/0.png", p.URL(Coord{}))
	assert.Equal(t, "https://a.tiles.example/0/0/0.png", p.URL(Coord{}), "subdomains rotate")

	plain := NewProxy("https://tiles.example/{z}/{x}/{y}.png", "", nil)
	assert.Equal(t, "https://tiles.example/1/1/0.png", plain.URL(Coord{Z: 1, X: 1}))
}

func TestProxy_FetchCaches(t *testing.T) {
	var calls atomic.Int32
	up := upstream(t, &calls, http.StatusOK)

	p := NewProxy(up.URL+"/{z}/{x}/{y}{r}.png", "", NewCache(10, time.Hour))

	data, ct, hit, err := p.Fetch(context.Background(), Coord{Z: 5, X: 10, Y: 11})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "tile:/5/10/11.png", string(data))
	assert.Equal(t, "image/png", ct)

	_, _, hit, err = p.Fetch(context.Background(), Coord{Z: 5, X: 10, Y: 11})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1), p.Stats().Hits)
}

func TestProxy_FetchUpstreamError(t *testing.T) {
	var calls atomic.Int32
	up := upstream(t, &calls, http.StatusInternalServerError)

	p := NewProxy(up.URL+"/{z}/{x}/{y}.png", "", NewCache(10, time.Hour))
	_, _, _, err := p.Fetch(context.Background(), Coord{Z: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream returned 500")

	_, _, _, err = p.Fetch(context.Background(), Coord{Z: 1})
	require.Error(t, err, "errors are not cached")
	assert.Equal(t, int32(2), calls.Load())
}

func TestProxy_RateLimitHonoursContext(t *testing.T) {
	var calls atomic.Int32
	up := upstream(t, &calls, http.StatusOK)

	p := NewProxy(up.URL+"/{z}/{x}/{y}.png", "", nil, WithRateLimit(0.001))
	_, _, _, err := p.Fetch(context.Background(), Coord{Z: 1})
	require.NoError(t, err, "first request uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, _, err = p.Fetch(ctx, Coord{Z: 1, X: 1})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func router(p *Proxy) http.Handler {
	r := chi.NewRouter()
	r.Get(Route, p.ServeHTTP)
	return r
}

func TestProxy_ServeHTTP(t *testing.T) {
	var calls atomic.Int32
	up := upstream(t, &calls, http.StatusOK)
	h := router(NewProxy(up.URL+"/{z}/{x}/{y}{r}.png", "", NewCache(10, time.Hour)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/3/2/1@2x.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tile:/3/2/1@2x.png", rec.Body.String())
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/3/2/1@2x.png", nil))
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))
}

func TestProxy_ServeHTTPBadCoords(t *testing.T) {
	h := router(NewProxy("http://unused/{z}/{x}/{y}.png", "", nil))

	for _, path := range []string{"/tiles/a/0/0.png", "/tiles/1/x/0.png", "/tiles/1/0/y.png", "/tiles/1/2/0.png", "/tiles/-1/0/0.png"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestProxy_ServeHTTPUpstreamFailure(t *testing.T) {
	var calls atomic.Int32
	up := upstream(t, &calls, http.StatusNotFound)
	h := router(NewProxy(up.URL+"/{z}/{x}/{y}.png", "", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/0/0/0.png", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
