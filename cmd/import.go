package main

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ooh-map/internal/fetcher"
	"github.com/sells-group/ooh-map/internal/model"
	"github.com/sells-group/ooh-map/internal/store"
)

var (
	importFile      string
	importDelimiter string
	importSheet     string
	importReplace   bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load placements from a CSV, XLSX or JSON file into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		ds, err := readImportFile(cmd, importFile)
		if err != nil {
			return err
		}
		if len(ds.Columns) == 0 {
			return eris.Errorf("import: %s has no columns", importFile)
		}

		sink, err := store.OpenSink(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer sink.Close() //nolint:errcheck

		n, err := sink.Save(ctx, ds, importReplace)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.String("file", importFile),
			zap.String("table", cfg.Store.Table),
			zap.Int64("rows", n),
			zap.Bool("replace", importReplace),
		)
		return nil
	},
}

func readImportFile(cmd *cobra.Command, path string) (*model.Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: importSheet})
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return fetcher.DecodeRecords(cmd.Context(), f)
	}

	opts := fetcher.CSVOptions{LazyQuotes: true}
	if importDelimiter != "" {
		r, size := utf8.DecodeRuneInString(importDelimiter)
		if size != len(importDelimiter) {
			return nil, eris.Errorf("import: delimiter must be a single character, got %q", importDelimiter)
		}
		opts.Delimiter = r
	}
	return fetcher.ReadCSV(cmd.Context(), f, opts)
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "CSV, XLSX or JSON file to import (required)")
	importCmd.Flags().StringVar(&importDelimiter, "delimiter", ",", "CSV field delimiter")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "truncate the table before loading")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
