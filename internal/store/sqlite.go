package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ooh-map/internal/db"
	"github.com/sells-group/ooh-map/internal/model"
)

// SQLiteSource reads and writes the placement table in a local SQLite file.
type SQLiteSource struct {
	db    *sql.DB
	table string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn, table string) (*SQLiteSource, error) {
	if err := db.ValidateTable(table); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteSource{db: conn, table: table}, nil
}

// Load runs SELECT * over the placement table, keeping column order.
func (s *SQLiteSource) Load(ctx context.Context) (*model.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, db.SelectPlacedSQL(s.table))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query %s", s.table)
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: columns")
	}

	ds := &model.Dataset{Columns: cols}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		rec := make(model.Record, len(cols))
		for i, c := range cols {
			rec[c] = fieldValue(vals[i])
		}
		ds.Records = append(ds.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate rows")
	}

	return ds, nil
}

// Save inserts ds into the placement table in one transaction, creating the
// table when missing.
func (s *SQLiteSource) Save(ctx context.Context, ds *model.Dataset, replace bool) (int64, error) {
	if len(ds.Columns) == 0 {
		return 0, eris.New("sqlite: save: no columns specified")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, db.CreateTextTableSQL(s.table, ds.Columns)); err != nil {
		return 0, eris.Wrapf(err, "sqlite: create table %s", s.table)
	}
	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+db.SanitizeTable(s.table)); err != nil {
			return 0, eris.Wrapf(err, "sqlite: clear %s", s.table)
		}
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(s.table, ds.Columns))
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, row := range copyRows(ds) {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert row %d", n+1)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func insertSQL(table string, cols []string) string {
	marks := make([]byte, 0, len(cols)*2)
	for i := range cols {
		if i > 0 {
			marks = append(marks, ',')
		}
		marks = append(marks, '?')
	}
	return "INSERT INTO " + db.SanitizeTable(table) + " (" + db.QuoteAndJoin(cols) + ") VALUES (" + string(marks) + ")"
}
