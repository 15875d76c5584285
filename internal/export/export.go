// Package export serializes the filtered placement records for download.
package export

import (
	"bytes"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ooh-map/internal/filter"
	"github.com/sells-group/ooh-map/internal/model"
)

// ErrEmptyResult is returned when the selection matches no record.
var ErrEmptyResult = eris.New("export: nothing to export")

// EmptyResultMessage is the user-facing notice for ErrEmptyResult.
const EmptyResultMessage = "Nenhum dado para exportar."

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatSHP  Format = "shp"
)

// ParseFormat validates a format name. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatSHP:
		return FormatSHP, nil
	}
	return "", eris.Errorf("export: unknown format %q", s)
}

// File is a finished download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

// Exporter re-filters the raw dataset for every export. Normalization and
// deduplication are not applied: the file lists records, not markers.
type Exporter struct {
	dataset *model.Dataset
	now     func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock overrides the clock used for file names.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New returns an Exporter over ds.
func New(ds *model.Dataset, opts ...Option) *Exporter {
	if ds == nil {
		ds = &model.Dataset{}
	}
	e := &Exporter{dataset: ds, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// BaseName is the file name without extension, stamped with the UTC date.
func (e *Exporter) BaseName() string {
	return "mapa_dados_" + e.now().UTC().Format(time.DateOnly)
}

// Records returns the records matching sel and the header derived from the
// first of them.
func (e *Exporter) Records(sel model.Selection) ([]string, []model.Record, error) {
	recs := filter.Apply(e.dataset.Records, sel)
	if len(recs) == 0 {
		return nil, nil, ErrEmptyResult
	}
	return e.dataset.ColumnsOf(recs[0]), recs, nil
}

// Export renders the records matching sel in the requested format.
func (e *Exporter) Export(sel model.Selection, format Format) (*File, error) {
	headers, recs, err := e.Records(sel)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	f := &File{Rows: len(recs)}
	switch format {
	case FormatCSV, "":
		err = WriteCSV(&buf, headers, recs)
		f.Name = e.BaseName() + ".csv"
		f.ContentType = "text/csv;charset=utf-8"
	case FormatXLSX:
		err = WriteXLSX(&buf, headers, recs)
		f.Name = e.BaseName() + ".xlsx"
		f.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatSHP:
		f.Rows, err = WriteShapefileZip(&buf, e.BaseName(), headers, recs)
		f.Name = e.BaseName() + ".zip"
		f.ContentType = "application/zip"
	default:
		return nil, eris.Errorf("export: unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}

	f.Data = buf.Bytes()
	return f, nil
}
