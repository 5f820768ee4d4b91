package dialect

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) TablesQuery() string {
	return `SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = current_schema() ORDER BY tablename`
}

func (d *PostgresDialect) ColumnsQuery() string {
	// format_type keeps length/precision modifiers: character varying(255), numeric(10,2).
	return `SELECT
    a.attname,
    pg_catalog.format_type(a.atttypid, a.atttypmod),
    CASE WHEN a.attnotnull THEN 'NO' ELSE 'YES' END,
    pg_catalog.pg_get_expr(ad.adbin, ad.adrelid),
    CASE WHEN EXISTS (
        SELECT 1 FROM pg_catalog.pg_index i
        WHERE i.indrelid = a.attrelid AND i.indisprimary AND a.attnum = ANY(i.indkey)
    ) THEN 'PRI' ELSE '' END,
    CASE WHEN a.attidentity <> '' THEN 'identity' ELSE '' END
FROM pg_catalog.pg_attribute a
JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
LEFT JOIN pg_catalog.pg_attrdef ad ON ad.adrelid = a.attrelid AND ad.adnum = a.attnum
WHERE n.nspname = current_schema()
  AND c.relname = $1
  AND c.relkind IN ('r', 'p')
  AND a.attnum > 0
  AND NOT a.attisdropped
ORDER BY a.attnum`
}

func (d *PostgresDialect) ForeignKeysQuery() string {
	return `SELECT a.attname, rc.relname, ra.attname
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
JOIN pg_catalog.pg_class rc ON rc.oid = con.confrelid
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) AS k(lcol, rcol)
JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.lcol
JOIN pg_catalog.pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.rcol
WHERE con.contype = 'f'
  AND n.nspname = current_schema()
  AND c.relname = $1
ORDER BY con.conname`
}

func (d *PostgresDialect) SessionStatements() []string {
	return []string{"SET client_encoding = 'UTF8'"}
}

// SuspendStatements disables FK triggers for the session. Requires superuser (or
// replication) privilege; otherwise the server answers with SQLSTATE 42501.
func (d *PostgresDialect) SuspendStatements(tables []string) []string {
	return []string{"SET session_replication_role = replica"}
}

func (d *PostgresDialect) RestoreStatements(tables []string) []string {
	return []string{"SET session_replication_role = DEFAULT"}
}

func (d *PostgresDialect) QuoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) MaxBindParams() int {
	return 65535
}

func (d *PostgresDialect) SelectPageQuery(table string, cols, orderBy []string, limit, offset int) string {
	return fmt.Sprintf("SELECT %s FROM %s%s LIMIT %d OFFSET %d",
		selectList(d, cols), d.QuoteIdent(table), orderClause(d, orderBy), limit, offset)
}

func (d *PostgresDialect) CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
}

func (d *PostgresDialect) InsertQuery(table string, cols []string, rows int) string {
	return multiRowInsert(d, table, cols, rows)
}

func (d *PostgresDialect) DeleteQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", d.QuoteIdent(table))
}

func (d *PostgresDialect) NormalizeType(sqlType string) string {
	t := DefaultNormalizeType(sqlType)
	switch t {
	case "int2", "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	case "timestamptz":
		return "timestamp with time zone"
	}
	if strings.HasPrefix(t, "bpchar") {
		return "char" + strings.TrimPrefix(t, "bpchar")
	}
	return t
}

func (d *PostgresDialect) TypeName(family string, length, precision, scale int) string {
	switch family {
	case "integer":
		return "integer"
	case "biginteger":
		return "bigint"
	case "float":
		return "double precision"
	case "decimal":
		return sized("numeric", []int{precision, max(scale, 0)}, "numeric")
	case "boolean":
		return "boolean"
	case "varchar":
		return sized("varchar", []int{length}, "varchar(255)")
	case "timestamp":
		return "timestamp"
	case "date":
		return "date"
	case "json":
		return "jsonb"
	default:
		return "text"
	}
}

func (d *PostgresDialect) AddColumnQuery(table, column, sqlType string, def any, notNull bool) string {
	return addColumn(d, "ALTER TABLE %s ADD COLUMN %s", table, column, sqlType, def, notNull)
}
