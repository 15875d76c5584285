package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	markersGeoJSON bool
	markersSel     selectionFlags
)

var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "Render the map for a selection and print its markers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("markers"); err != nil {
			return err
		}

		ds, err := loadDataset(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		view, err := newView(cfg, ds)
		if err != nil {
			return err
		}
		if err := view.Redraw(markersSel.selection()); err != nil {
			return eris.Wrap(err, "redraw")
		}

		stats := view.Stats()
		zap.L().Info("map rendered",
			zap.Int("markers", view.Count()),
			zap.Int("matched", stats.Matched),
			zap.Int("invalid", stats.Invalid),
			zap.Int("duplicates", stats.Duplicates),
		)

		var data []byte
		if markersGeoJSON {
			data, err = view.GeoJSON()
		} else {
			data, err = json.MarshalIndent(view.Snapshot(), "", "  ")
		}
		if err != nil {
			return eris.Wrap(err, "encode markers")
		}

		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	},
}

func init() {
	markersCmd.Flags().BoolVar(&markersGeoJSON, "geojson", false, "print a GeoJSON FeatureCollection")
	markersSel = addSelectionFlags(markersCmd)
	rootCmd.AddCommand(markersCmd)
}
