// Package server exposes the placement map over HTTP: the map page, the
// marker and option APIs and file export.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ooh-map/internal/config"
	"github.com/sells-group/ooh-map/internal/export"
	"github.com/sells-group/ooh-map/internal/filter"
	"github.com/sells-group/ooh-map/internal/mapview"
	"github.com/sells-group/ooh-map/internal/tiles"
)

//go:embed web
var webFS embed.FS

var pageTmpl = template.Must(template.ParseFS(webFS, "web/index.html.tmpl"))

// Server serves one MapView. Redraws are serialized by mu so a request sees
// a complete render.
type Server struct {
	cfg config.ServerConfig

	mu       sync.Mutex
	view     *mapview.MapView
	exporter *export.Exporter
	options  filter.Options

	// tiles is nil unless basemap tiles are proxied.
	tiles *tiles.Proxy

	// loadErr is set when the dataset could not be fetched; every route
	// except /health then reports it.
	loadErr error
}

// Option configures a Server.
type Option func(*Server)

// WithTileProxy serves basemap tiles through p and points the page at it.
func WithTileProxy(p *tiles.Proxy) Option {
	return func(s *Server) { s.tiles = p }
}

// New returns a Server for an initialized view.
func New(cfg config.ServerConfig, view *mapview.MapView, exporter *export.Exporter, options filter.Options, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		view:     view,
		exporter: exporter,
		options:  options,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewUnavailable returns a Server that shows a blocking error instead of the
// map, for when the placement store could not be read.
func NewUnavailable(cfg config.ServerConfig, loadErr error) *Server {
	return &Server{cfg: cfg, loadErr: loadErr}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	static, _ := fs.Sub(webFS, "web")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	if s.tiles != nil {
		r.Get(tiles.Route, s.tiles.ServeHTTP)
		r.Get("/tiles/stats", s.handleTileStats)
	}

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(newClientLimiter(s.cfg.RateLimit, s.cfg.RateBurst).middleware)
		}
		r.Get("/", s.handlePage)
		r.Route("/api", func(r chi.Router) {
			r.Use(s.requireData)
			r.Get("/options", s.handleOptions)
			r.Get("/markers", s.handleMarkers)
			r.Get("/markers.geojson", s.handleGeoJSON)
			r.Post("/clear", s.handleClear)
			r.Get("/export", s.handleExport)
		})
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("starting server", zap.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server: listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server: shutdown")
	})
	return g.Wait()
}
