package tiles

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Route is the path pattern the proxy is mounted on, and Template the
// Leaflet URL template that targets it.
const (
	Route    = "/tiles/{z}/{x}/{tile}"
	Template = "/tiles/{z}/{x}/{y}{r}.png"
)

// maxTileBytes bounds a single upstream tile body.
const maxTileBytes = 4 << 20

// Proxy fetches basemap tiles from a Leaflet-style URL template
// ({s}, {z}, {x}, {y}, {r}) and caches them.
type Proxy struct {
	template   string
	subdomains string
	client     *http.Client
	cache      *Cache
	limiter    *rate.Limiter
	next       atomic.Uint32
}

// ProxyOption configures a Proxy.
type ProxyOption func(*Proxy)

// WithHTTPClient overrides the upstream client.
func WithHTTPClient(c *http.Client) ProxyOption {
	return func(p *Proxy) { p.client = c }
}

// WithRateLimit bounds upstream requests per second. Zero disables it.
func WithRateLimit(rps float64) ProxyOption {
	return func(p *Proxy) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		}
	}
}

// NewProxy returns a proxy for template. A nil cache disables caching.
func NewProxy(template, subdomains string, cache *Cache, opts ...ProxyOption) *Proxy {
	p := &Proxy{
		template:   template,
		subdomains: subdomains,
		client:     &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// URL expands the template for tc, rotating over the subdomains.
func (p *Proxy) URL(tc Coord) string {
	r := ""
	if tc.Retina {
		r = "@2x"
	}
	s := ""
	if n := len(p.subdomains); n > 0 {
		i := int(p.next.Add(1)-1) % n
		s = p.subdomains[i : i+1]
	}
	return strings.NewReplacer(
		"{s}", s,
		"{z}", strconv.Itoa(tc.Z),
		"{x}", strconv.Itoa(tc.X),
		"{y}", strconv.Itoa(tc.Y),
		"{r}", r,
	).Replace(p.template)
}

// Fetch returns the tile body and content type, from cache when possible.
// Failed fetches are not retried.
func (p *Proxy) Fetch(ctx context.Context, tc Coord) ([]byte, string, bool, error) {
	if p.cache != nil {
		if data, ct, ok := p.cache.Get(tc); ok {
			return data, ct, true, nil
		}
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, "", false, eris.Wrap(err, "tiles: rate limit wait")
		}
	}

	url := p.URL(tc)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", false, eris.Wrap(err, "tiles: create request")
	}
	req.Header.Set("User-Agent", "ooh-map/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", false, eris.Wrap(err, "tiles: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", false, eris.Errorf("tiles: upstream returned %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return nil, "", false, eris.Wrap(err, "tiles: read body")
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/png"
	}

	if p.cache != nil {
		p.cache.Put(tc, data, ct)
	}
	zap.L().Debug("tiles: fetched", zap.String("url", url), zap.Int("bytes", len(data)))
	return data, ct, false, nil
}

// ParseCoord reads the chi params of Route. The last segment is "{y}.png"
// or "{y}@2x.png".
func ParseCoord(r *http.Request) (Coord, error) {
	var tc Coord
	var err error
	if tc.Z, err = strconv.Atoi(chi.URLParam(r, "z")); err != nil {
		return tc, eris.New("tiles: invalid z")
	}
	if tc.X, err = strconv.Atoi(chi.URLParam(r, "x")); err != nil {
		return tc, eris.New("tiles: invalid x")
	}

	last := chi.URLParam(r, "tile")
	if i := strings.IndexByte(last, '.'); i >= 0 {
		last = last[:i]
	}
	if strings.HasSuffix(last, "@2x") {
		tc.Retina = true
		last = strings.TrimSuffix(last, "@2x")
	}
	if tc.Y, err = strconv.Atoi(last); err != nil {
		return tc, eris.New("tiles: invalid y")
	}

	if tc.Z < 0 || tc.Z > 30 || tc.X < 0 || tc.Y < 0 || tc.X >= 1<<tc.Z || tc.Y >= 1<<tc.Z {
		return tc, eris.Errorf("tiles: %d/%d/%d out of range", tc.Z, tc.X, tc.Y)
	}
	return tc, nil
}

// ServeHTTP serves a tile mounted at Route.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tc, err := ParseCoord(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, ct, hit, err := p.Fetch(r.Context(), tc)
	if err != nil {
		zap.L().Warn("tiles: upstream fetch failed",
			zap.Int("z", tc.Z), zap.Int("x", tc.X), zap.Int("y", tc.Y),
			zap.Error(err),
		)
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	_, _ = w.Write(data)
}

// Stats returns the cache counters, zero when caching is off.
func (p *Proxy) Stats() CacheStats {
	if p.cache == nil {
		return CacheStats{}
	}
	return p.cache.Stats()
}
