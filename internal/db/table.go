package db

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateTable rejects table names that are not plain or schema-qualified
// identifiers. Table names come from configuration and end up in SQL text.
func ValidateTable(table string) error {
	if !tablePattern.MatchString(table) {
		return eris.Errorf("db: invalid table name %q", table)
	}
	return nil
}

// Identifier splits a possibly schema-qualified table name.
func Identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.SplitN(table, ".", 2))
}

// SanitizeTable handles schema-qualified table names like "public.mapa".
func SanitizeTable(table string) string {
	return Identifier(table).Sanitize()
}

// QuoteAndJoin quotes each column name and joins with commas.
func QuoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

// SelectPlacedSQL selects every row that carries both coordinates.
func SelectPlacedSQL(table string) string {
	return fmt.Sprintf(`SELECT * FROM %s WHERE "LATITUDE" IS NOT NULL AND "LONGITUDE" IS NOT NULL`, SanitizeTable(table))
}

// CreateTextTableSQL returns a CREATE TABLE IF NOT EXISTS statement with a TEXT
// column per name. The quoting is accepted by both Postgres and SQLite.
func CreateTextTableSQL(table string, cols []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = pgx.Identifier{c}.Sanitize() + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", SanitizeTable(table), strings.Join(defs, ", "))
}
