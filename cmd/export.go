package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ooh-map/internal/export"
)

var (
	exportFormat string
	exportOut    string
	exportSel    selectionFlags
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the records matching a selection to CSV, XLSX or a zipped shapefile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		ds, err := loadDataset(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		f, err := export.New(ds).Export(exportSel.selection(), format)
		if eris.Is(err, export.ErrEmptyResult) {
			return eris.New(export.EmptyResultMessage)
		}
		if err != nil {
			return eris.Wrap(err, "export")
		}

		if exportOut == "-" {
			_, err = cmd.OutOrStdout().Write(f.Data)
			return err
		}
		out := exportOut
		if out == "" {
			out = f.Name
		}
		if err := os.WriteFile(out, f.Data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", out)
		}

		zap.L().Info("export written",
			zap.String("file", out),
			zap.String("format", string(format)),
			zap.Int("rows", f.Rows),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv, xlsx or shp")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default mapa_dados_<date>.<ext>, - for stdout)")
	exportSel = addSelectionFlags(exportCmd)
	rootCmd.AddCommand(exportCmd)
}
