package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ooh-map/internal/config"
	"github.com/sells-group/ooh-map/internal/dedup"
	"github.com/sells-group/ooh-map/internal/mapview"
	"github.com/sells-group/ooh-map/internal/model"
	"github.com/sells-group/ooh-map/internal/store"
)

// loadDataset reads every placed record from the configured store.
func loadDataset(ctx context.Context, c *config.Config) (*model.Dataset, error) {
	src, err := store.Open(ctx, c.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	defer src.Close() //nolint:errcheck

	ds, err := src.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load placements")
	}

	zap.L().Info("placements loaded",
		zap.String("driver", c.Store.Driver),
		zap.Int("records", ds.Len()),
	)
	return ds, nil
}

func mapConfig(c *config.Config) (mapview.Config, error) {
	policy, err := dedup.ParsePolicy(c.Dedup.Compare)
	if err != nil {
		return mapview.Config{}, err
	}
	return mapview.Config{
		CenterLat: c.Map.CenterLat,
		CenterLng: c.Map.CenterLng,
		Zoom:      c.Map.Zoom,
		Tiles: mapview.TileLayer{
			URL:         c.Map.TileURL,
			Subdomains:  c.Map.TileSubdomains,
			Attribution: c.Map.TileAttribution,
			MaxZoom:     c.Map.MaxZoom,
		},
		FitPadding: c.Map.FitPadding,
		Compare:    policy,
	}, nil
}

// newView returns an initialized MapView over ds.
func newView(c *config.Config, ds *model.Dataset) (*mapview.MapView, error) {
	mc, err := mapConfig(c)
	if err != nil {
		return nil, err
	}
	view := mapview.New(ds, mc)
	if err := view.Initialize(); err != nil {
		return nil, eris.Wrap(err, "initialize map")
	}
	return view, nil
}

// selectionFlags binds one repeatable flag per facet.
type selectionFlags map[model.Facet]*[]string

func addSelectionFlags(cmd *cobra.Command) selectionFlags {
	flags := make(selectionFlags, len(model.Facets()))
	for _, f := range model.Facets() {
		vals := new([]string)
		cmd.Flags().StringArrayVar(vals, string(f), nil,
			fmt.Sprintf("select a %s value (repeatable)", f))
		flags[f] = vals
	}
	return flags
}

func (s selectionFlags) selection() model.Selection {
	sel := model.NewSelection()
	for f, vals := range s {
		sel.Add(f, *vals...)
	}
	return sel
}
