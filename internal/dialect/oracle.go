package dialect

import (
	"fmt"
	"strings"
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

func (d *OracleDialect) TablesQuery() string {
	// USER_TABLES lists tables owned by the current user.
	return `SELECT TABLE_NAME FROM USER_TABLES ORDER BY TABLE_NAME`
}

func (d *OracleDialect) ColumnsQuery() string {
	// DATA_DEFAULT is a LONG column and is not selected.
	return `
SELECT
    t.COLUMN_NAME,
    t.DATA_TYPE || CASE
        WHEN t.DATA_TYPE IN ('VARCHAR2', 'NVARCHAR2', 'CHAR', 'NCHAR') THEN '(' || t.CHAR_LENGTH || ')'
        WHEN t.DATA_TYPE = 'NUMBER' AND t.DATA_PRECISION IS NOT NULL THEN '(' || t.DATA_PRECISION || ',' || NVL(t.DATA_SCALE, 0) || ')'
        ELSE ''
    END,
    CASE t.NULLABLE WHEN 'Y' THEN 'YES' ELSE 'NO' END,
    NULL,
    CASE WHEN p.CONSTRAINT_NAME IS NOT NULL THEN 'PRI' ELSE '' END,
    CASE WHEN t.IDENTITY_COLUMN = 'YES' THEN 'identity' ELSE '' END
FROM USER_TAB_COLUMNS t
LEFT JOIN (
    SELECT cc.TABLE_NAME, cc.COLUMN_NAME, cc.CONSTRAINT_NAME
    FROM USER_CONS_COLUMNS cc
    JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
    WHERE uc.CONSTRAINT_TYPE = 'P'
) p ON t.TABLE_NAME = p.TABLE_NAME AND t.COLUMN_NAME = p.COLUMN_NAME
WHERE t.TABLE_NAME = :1
ORDER BY t.COLUMN_ID`
}

func (d *OracleDialect) ForeignKeysQuery() string {
	return `
SELECT
    cc.COLUMN_NAME,
    r.TABLE_NAME AS REF_TABLE,
    rcc.COLUMN_NAME AS REF_COLUMN
FROM USER_CONSTRAINTS c
JOIN USER_CONS_COLUMNS cc
    ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
    AND c.OWNER = cc.OWNER
JOIN USER_CONSTRAINTS r
    ON c.R_CONSTRAINT_NAME = r.CONSTRAINT_NAME
    AND c.R_OWNER = r.OWNER
JOIN USER_CONS_COLUMNS rcc
    ON r.CONSTRAINT_NAME = rcc.CONSTRAINT_NAME
    AND r.OWNER = rcc.OWNER
    AND cc.POSITION = rcc.POSITION
WHERE c.CONSTRAINT_TYPE = 'R'
AND c.TABLE_NAME = :1`
}

func (d *OracleDialect) SessionStatements() []string {
	return []string{
		"ALTER SESSION SET NLS_DATE_FORMAT = 'YYYY-MM-DD HH24:MI:SS'",
		"ALTER SESSION SET NLS_TIMESTAMP_FORMAT = 'YYYY-MM-DD HH24:MI:SS.FF'",
	}
}

// SuspendStatements disables the enabled FK constraints of the given tables.
// DDL in Oracle commits implicitly.
func (d *OracleDialect) SuspendStatements(tables []string) []string {
	return []string{d.toggleBlock(tables, "ENABLED", "DISABLE")}
}

func (d *OracleDialect) RestoreStatements(tables []string) []string {
	return []string{d.toggleBlock(tables, "DISABLED", "ENABLE NOVALIDATE")}
}

func (d *OracleDialect) toggleBlock(tables []string, status, action string) string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = "'" + strings.ReplaceAll(t, "'", "''") + "'"
	}
	filter := ""
	if len(names) > 0 {
		filter = " AND TABLE_NAME IN (" + strings.Join(names, ", ") + ")"
	}
	return fmt.Sprintf(`BEGIN
  FOR c IN (SELECT TABLE_NAME, CONSTRAINT_NAME FROM USER_CONSTRAINTS WHERE CONSTRAINT_TYPE = 'R' AND STATUS = '%s'%s) LOOP
    EXECUTE IMMEDIATE 'ALTER TABLE "' || c.TABLE_NAME || '" %s CONSTRAINT "' || c.CONSTRAINT_NAME || '"';
  END LOOP;
END;`, status, filter, action)
}

func (d *OracleDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) MaxBindParams() int {
	return 1000
}

func (d *OracleDialect) SelectPageQuery(table string, cols, orderBy []string, limit, offset int) string {
	return fmt.Sprintf("SELECT %s FROM %s%s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY",
		selectList(d, cols), d.QuoteIdent(table), orderClause(d, orderBy), offset, limit)
}

func (d *OracleDialect) CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
}

// InsertQuery uses INSERT ALL since Oracle has no multi-row VALUES list.
func (d *OracleDialect) InsertQuery(table string, cols []string, rows int) string {
	if rows == 1 {
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			d.QuoteIdent(table), QuoteList(cols, d.QuoteIdent), GeneratePlaceholders(0, len(cols), d.Placeholder))
	}
	var b strings.Builder
	b.WriteString("INSERT ALL")
	for r := 0; r < rows; r++ {
		fmt.Fprintf(&b, " INTO %s (%s) VALUES (%s)",
			d.QuoteIdent(table), QuoteList(cols, d.QuoteIdent), GeneratePlaceholders(r*len(cols), len(cols), d.Placeholder))
	}
	b.WriteString(" SELECT 1 FROM DUAL")
	return b.String()
}

func (d *OracleDialect) DeleteQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", d.QuoteIdent(table))
}

func (d *OracleDialect) NormalizeType(sqlType string) string {
	s := DefaultNormalizeType(sqlType)
	switch {
	case strings.HasPrefix(s, "varchar2"), strings.HasPrefix(s, "nvarchar2"):
		return "varchar" + s[strings.Index(s, "2")+1:]
	case strings.HasPrefix(s, "nchar"):
		return strings.TrimPrefix(s, "n")
	case s == "clob", s == "nclob", s == "long":
		return "text"
	case s == "number(1,0)":
		return "boolean"
	case strings.HasPrefix(s, "number"):
		return "numeric" + strings.TrimPrefix(s, "number")
	case s == "binary_float":
		return "real"
	case s == "binary_double":
		return "double precision"
	case s == "date", strings.HasPrefix(s, "timestamp"):
		// Oracle DATE carries a time of day.
		return "timestamp"
	}
	return s
}

func (d *OracleDialect) TypeName(family string, length, precision, scale int) string {
	switch family {
	case "integer":
		return "NUMBER(10)"
	case "biginteger":
		return "NUMBER(19)"
	case "float":
		return "BINARY_DOUBLE"
	case "decimal":
		return sized("NUMBER", []int{precision, max(scale, 0)}, "NUMBER")
	case "boolean":
		return "NUMBER(1)"
	case "varchar":
		return sized("VARCHAR2", []int{length}, "VARCHAR2(255)")
	case "timestamp":
		return "TIMESTAMP"
	case "date":
		return "DATE"
	default:
		return "CLOB"
	}
}

func (d *OracleDialect) AddColumnQuery(table, column, sqlType string, def any, notNull bool) string {
	return addColumn(d, "ALTER TABLE %s ADD (%s)", table, column, sqlType, bitDefault(def), notNull)
}
