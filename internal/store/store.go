// Package store delivers placement records from Postgres, SQLite or a JSON
// dump, and writes imported records back to the SQL backends.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ooh-map/internal/config"
	"github.com/sells-group/ooh-map/internal/model"
)

// ErrUnsupportedDriver is returned for unknown store drivers and for import
// into a read-only backend.
var ErrUnsupportedDriver = eris.New("store: unsupported driver")

// Source loads the full placement dataset. Only rows with both coordinates
// are delivered.
type Source interface {
	Load(ctx context.Context) (*model.Dataset, error)
	Close() error
}

// Sink persists imported records.
type Sink interface {
	Save(ctx context.Context, ds *model.Dataset, replace bool) (int64, error)
	Close() error
}

// Open returns the Source selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Source, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg)
	case "sqlite":
		return NewSQLite(cfg.Path, cfg.Table)
	case "json":
		return NewJSONFile(cfg.Path), nil
	default:
		return nil, eris.Wrapf(ErrUnsupportedDriver, "store: driver %q", cfg.Driver)
	}
}

// OpenSink returns the Sink selected by cfg.Driver. JSON dumps are read-only.
func OpenSink(ctx context.Context, cfg config.StoreConfig) (Sink, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg)
	case "sqlite":
		return NewSQLite(cfg.Path, cfg.Table)
	default:
		return nil, eris.Wrapf(ErrUnsupportedDriver, "store: cannot import into driver %q", cfg.Driver)
	}
}

// copyRows flattens records into column-ordered rows; NULL stays nil.
func copyRows(ds *model.Dataset) [][]any {
	rows := make([][]any, 0, ds.Len())
	for _, rec := range ds.Records {
		row := make([]any, len(ds.Columns))
		for i, col := range ds.Columns {
			if v := rec.Raw(col); v != nil {
				row[i] = *v
			}
		}
		rows = append(rows, row)
	}
	return rows
}
