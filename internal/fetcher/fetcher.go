// Package fetcher parses placement records from CSV, XLSX and JSON sources
// into a model.Dataset.
package fetcher

import (
	"strings"

	"github.com/sells-group/ooh-map/internal/model"
)

const utf8BOM = "\ufeff"

// normalizeHeader trims column names and strips a leading byte order mark,
// which spreadsheet exports commonly prepend.
func normalizeHeader(row []string) []string {
	cols := make([]string, len(row))
	for i, c := range row {
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		cols[i] = strings.TrimSpace(c)
	}
	return cols
}

// toRecord maps a data row onto the header. Empty cells and cells missing from
// short rows become NULL; cells beyond the header are dropped.
func toRecord(header, row []string) model.Record {
	rec := make(model.Record, len(header))
	for i, col := range header {
		if col == "" {
			continue
		}
		if i < len(row) && row[i] != "" {
			v := row[i]
			rec[col] = &v
			continue
		}
		rec[col] = nil
	}
	return rec
}

// blank reports whether every cell of row is empty or whitespace.
func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// buildDataset turns header + rows into a dataset, skipping blank rows.
func buildDataset(header []string, rows [][]string) *model.Dataset {
	ds := &model.Dataset{Records: make([]model.Record, 0, len(rows))}
	for _, c := range header {
		if c != "" {
			ds.Columns = append(ds.Columns, c)
		}
	}
	for _, row := range rows {
		if blank(row) {
			continue
		}
		ds.Records = append(ds.Records, toRecord(header, row))
	}
	return ds
}
