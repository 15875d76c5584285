package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ooh-map/internal/config"
	"github.com/sells-group/ooh-map/internal/export"
	"github.com/sells-group/ooh-map/internal/filter"
	"github.com/sells-group/ooh-map/internal/server"
	"github.com/sells-group/ooh-map/internal/tiles"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive placement map",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		srv, err := buildServer(ctx, cfg)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx)
	},
}

// buildServer loads the dataset once for the session. A store failure still
// starts the server so the page can report it; a bad map setup does not.
func buildServer(ctx context.Context, c *config.Config) (*server.Server, error) {
	ds, err := loadDataset(ctx, c)
	if err != nil {
		zap.L().Error("placements unavailable, serving error page", zap.Error(err))
		return server.NewUnavailable(c.Server, err), nil
	}

	view, err := newView(c, ds)
	if err != nil {
		return nil, err
	}

	opts := filter.BuildOptions(ds.Records)
	zap.L().Info("filter options built", zap.Int("options", opts.Total()))

	var srvOpts []server.Option
	if c.Map.TileProxy {
		proxy := tiles.NewProxy(c.Map.TileURL, c.Map.TileSubdomains,
			tiles.NewCache(c.Map.TileCacheSize, c.Map.TileCacheTTL),
			tiles.WithRateLimit(c.Map.TileRateLimit),
		)
		srvOpts = append(srvOpts, server.WithTileProxy(proxy))
		zap.L().Info("proxying basemap tiles", zap.Int("cache_size", c.Map.TileCacheSize))
	}

	return server.New(c.Server, view, export.New(ds), opts, srvOpts...), nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
