// Package db provides shared Postgres helpers for table naming and bulk loads.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into a table using PostgreSQL COPY protocol.
// table may be schema-qualified ("public.mapa").
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, Identifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}

	return n, nil
}

// LoadConfig describes a bulk load into a text-typed table.
type LoadConfig struct {
	Table   string
	Columns []string
	// Replace truncates the table before loading.
	Replace bool
}

// Load creates the table when missing (every column TEXT), optionally
// truncates it, then COPYs rows in a single transaction.
func Load(ctx context.Context, pool Pool, cfg LoadConfig, rows [][]any) (int64, error) {
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: load: no columns specified")
	}
	if err := ValidateTable(cfg.Table); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: load: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, CreateTextTableSQL(cfg.Table, cfg.Columns)); err != nil {
		return 0, eris.Wrapf(err, "db: load: create table %s", cfg.Table)
	}

	if cfg.Replace {
		if _, err := tx.Exec(ctx, "TRUNCATE "+SanitizeTable(cfg.Table)); err != nil {
			return 0, eris.Wrapf(err, "db: load: truncate %s", cfg.Table)
		}
	}

	n, err := CopyFrom(ctx, tx, cfg.Table, cfg.Columns, rows)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: load: commit tx")
	}

	return n, nil
}
