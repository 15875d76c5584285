package store

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ooh-map/internal/fetcher"
	"github.com/sells-group/ooh-map/internal/model"
)

// JSONFile reads a JSON dump of the placement table: an array of flat
// objects keyed by column name.
type JSONFile struct {
	path string
}

// NewJSONFile returns a Source over the dump at path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Load decodes the dump. A missing file is a fetch failure; a payload that is
// not an array of objects degrades to an empty dataset. Rows lacking either
// coordinate are dropped, matching the SQL sources.
func (j *JSONFile) Load(ctx context.Context) (*model.Dataset, error) {
	f, err := os.Open(j.path)
	if err != nil {
		return nil, eris.Wrapf(err, "json: open %s", j.path)
	}
	defer f.Close() //nolint:errcheck

	ds, err := fetcher.DecodeRecords(ctx, f)
	if eris.Is(err, fetcher.ErrMalformedPayload) {
		zap.L().Warn("json: malformed placement payload, using empty dataset",
			zap.String("path", j.path),
			zap.Error(err),
		)
		return &model.Dataset{}, nil
	}
	if err != nil {
		return nil, err
	}

	kept := ds.Records[:0]
	for _, rec := range ds.Records {
		if rec.Raw(model.FieldLatitude) != nil && rec.Raw(model.FieldLongitude) != nil {
			kept = append(kept, rec)
		}
	}
	ds.Records = kept
	return ds, nil
}

// Close is a no-op.
func (j *JSONFile) Close() error { return nil }
