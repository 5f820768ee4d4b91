package dialect

import (
	"fmt"
	"strings"
)

type MSSQLDialect struct{}

func (d *MSSQLDialect) Name() string { return "sqlserver" }

// Helper: MSSQL Driver (go-mssqldb) prefers @p1, @p2 parameters over ?

func (d *MSSQLDialect) TablesQuery() string {
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
}

func (d *MSSQLDialect) ColumnsQuery() string {
	// Type text is rebuilt with its modifiers; nvarchar(max) reports a length of -1.
	return `
		SELECT
			c.COLUMN_NAME,
			c.DATA_TYPE + CASE
				WHEN c.CHARACTER_MAXIMUM_LENGTH IS NOT NULL THEN '(' + CAST(c.CHARACTER_MAXIMUM_LENGTH AS VARCHAR(12)) + ')'
				WHEN c.DATA_TYPE IN ('decimal', 'numeric') THEN '(' + CAST(c.NUMERIC_PRECISION AS VARCHAR(4)) + ',' + CAST(c.NUMERIC_SCALE AS VARCHAR(4)) + ')'
				ELSE ''
			END,
			c.IS_NULLABLE,
			c.COLUMN_DEFAULT,
			CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 'PRI' ELSE '' END,
			CASE WHEN COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity') = 1 THEN 'identity' ELSE '' END
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN (
			SELECT kcu.TABLE_SCHEMA, kcu.TABLE_NAME, kcu.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
				ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		) pk ON c.TABLE_SCHEMA = pk.TABLE_SCHEMA AND c.TABLE_NAME = pk.TABLE_NAME AND c.COLUMN_NAME = pk.COLUMN_NAME
		WHERE c.TABLE_SCHEMA = SCHEMA_NAME() AND c.TABLE_NAME = @p1
		ORDER BY c.ORDINAL_POSITION`
}

func (d *MSSQLDialect) ForeignKeysQuery() string {
	return `SELECT KCU1.COLUMN_NAME, KCU2.TABLE_NAME AS REF_TABLE, KCU2.COLUMN_NAME AS REF_COLUMN
		FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS RC
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU1 ON RC.CONSTRAINT_NAME = KCU1.CONSTRAINT_NAME
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU2 ON RC.UNIQUE_CONSTRAINT_NAME = KCU2.CONSTRAINT_NAME
			AND KCU1.ORDINAL_POSITION = KCU2.ORDINAL_POSITION
		WHERE KCU1.TABLE_SCHEMA = SCHEMA_NAME() AND KCU1.TABLE_NAME = @p1`
}

func (d *MSSQLDialect) SessionStatements() []string {
	return []string{"SET DATEFORMAT ymd"}
}

// SuspendStatements disables constraints table by table; NOCHECK is not session scoped.
func (d *MSSQLDialect) SuspendStatements(tables []string) []string {
	stmts := make([]string, 0, len(tables))
	for _, t := range tables {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s NOCHECK CONSTRAINT ALL", d.QuoteIdent(t)))
	}
	return stmts
}

// RestoreStatements re-enables constraints without re-validating rows written while suspended.
func (d *MSSQLDialect) RestoreStatements(tables []string) []string {
	stmts := make([]string, 0, len(tables))
	for _, t := range tables {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s CHECK CONSTRAINT ALL", d.QuoteIdent(t)))
	}
	return stmts
}

func (d *MSSQLDialect) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) MaxBindParams() int {
	return 2100
}

func (d *MSSQLDialect) SelectPageQuery(table string, cols, orderBy []string, limit, offset int) string {
	order := orderClause(d, orderBy)
	if order == "" {
		// OFFSET/FETCH needs an ORDER BY.
		order = " ORDER BY (SELECT NULL)"
	}
	return fmt.Sprintf("SELECT %s FROM %s%s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY",
		selectList(d, cols), d.QuoteIdent(table), order, offset, limit)
}

func (d *MSSQLDialect) CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT_BIG(*) FROM %s", d.QuoteIdent(table))
}

func (d *MSSQLDialect) InsertQuery(table string, cols []string, rows int) string {
	return multiRowInsert(d, table, cols, rows)
}

func (d *MSSQLDialect) DeleteQuery(table string) string {
	// DELETE rather than TRUNCATE: TRUNCATE is refused on FK-referenced tables.
	return fmt.Sprintf("DELETE FROM %s", d.QuoteIdent(table))
}

func (d *MSSQLDialect) NormalizeType(sqlType string) string {
	t := DefaultNormalizeType(sqlType)
	switch {
	case t == "bit":
		return "boolean"
	case strings.HasPrefix(t, "nvarchar(-1)"), strings.HasPrefix(t, "varchar(-1)"), t == "ntext":
		return "text"
	case strings.HasPrefix(t, "nvarchar"):
		return strings.TrimPrefix(t, "n")
	case strings.HasPrefix(t, "nchar"):
		return strings.TrimPrefix(t, "n")
	case t == "money", t == "smallmoney":
		return "decimal(19,4)"
	case t == "datetime", t == "datetime2", t == "smalldatetime", t == "datetimeoffset":
		return "timestamp"
	case t == "uniqueidentifier":
		return "uuid"
	default:
		return t
	}
}

func (d *MSSQLDialect) TypeName(family string, length, precision, scale int) string {
	switch family {
	case "integer":
		return "int"
	case "biginteger":
		return "bigint"
	case "float":
		return "float"
	case "decimal":
		return sized("decimal", []int{precision, max(scale, 0)}, "decimal(18,2)")
	case "boolean":
		return "bit"
	case "varchar":
		return sized("nvarchar", []int{length}, "nvarchar(255)")
	case "timestamp":
		return "datetime2"
	case "date":
		return "date"
	default:
		return "nvarchar(max)"
	}
}

// AddColumnQuery uses ADD without COLUMN; bit columns take 1/0 defaults.
func (d *MSSQLDialect) AddColumnQuery(table, column, sqlType string, def any, notNull bool) string {
	return addColumn(d, "ALTER TABLE %s ADD %s", table, column, sqlType, bitDefault(def), notNull)
}
