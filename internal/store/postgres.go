package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ooh-map/internal/config"
	"github.com/sells-group/ooh-map/internal/db"
	"github.com/sells-group/ooh-map/internal/model"
)

// PostgresSource reads and writes the placement table using pgxpool.
type PostgresSource struct {
	pool    db.Pool
	table   string
	closeFn func()
}

// NewPostgres creates a PostgresSource with a connection pool.
func NewPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresSource, error) {
	if err := db.ValidateTable(cfg.Table); err != nil {
		return nil, err
	}

	pgxCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	if cfg.MaxConns > 0 {
		maxConns = cfg.MaxConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresSource{pool: pool, table: cfg.Table, closeFn: pool.Close}, nil
}

// Load runs SELECT * over the placement table, keeping column order.
func (s *PostgresSource) Load(ctx context.Context) (*model.Dataset, error) {
	rows, err := s.pool.Query(ctx, db.SelectPlacedSQL(s.table))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query %s", s.table)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}

	ds := &model.Dataset{Columns: cols}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		rec := make(model.Record, len(cols))
		for i, c := range cols {
			rec[c] = fieldValue(vals[i])
		}
		ds.Records = append(ds.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate rows")
	}

	return ds, nil
}

// Save bulk-loads ds into the placement table via COPY.
func (s *PostgresSource) Save(ctx context.Context, ds *model.Dataset, replace bool) (int64, error) {
	n, err := db.Load(ctx, s.pool, db.LoadConfig{
		Table:   s.table,
		Columns: ds.Columns,
		Replace: replace,
	}, copyRows(ds))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save")
	}
	return n, nil
}

// Close releases the pool.
func (s *PostgresSource) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
