package dbtest

import (
	"fmt"
	"strings"

	"db-migrate/internal/dialect"
)

// Dialect renders statements as pipe-separated tokens the Fake can parse.
type Dialect struct{}

func (Dialect) Name() string                  { return "fake" }
func (Dialect) TablesQuery() string           { return "TABLES" }
func (Dialect) ColumnsQuery() string          { return "COLUMNS" }
func (Dialect) ForeignKeysQuery() string      { return "FKS" }
func (Dialect) SessionStatements() []string   { return []string{"SESSION"} }
func (Dialect) QuoteIdent(name string) string { return name }
func (Dialect) Placeholder(int) string        { return "?" }
func (Dialect) MaxBindParams() int            { return 1000 }

func (Dialect) SuspendStatements([]string) []string { return []string{"SUSPEND"} }
func (Dialect) RestoreStatements([]string) []string { return []string{"RESTORE"} }

func (Dialect) SelectPageQuery(table string, cols, orderBy []string, limit, offset int) string {
	return fmt.Sprintf("SELECT|%s|%s|%s|%d|%d", table, strings.Join(cols, ","), strings.Join(orderBy, ","), limit, offset)
}

func (Dialect) CountQuery(table string) string { return "COUNT|" + table }

func (Dialect) InsertQuery(table string, cols []string, rows int) string {
	return fmt.Sprintf("INSERT|%s|%s|%d", table, strings.Join(cols, ","), rows)
}

func (Dialect) DeleteQuery(table string) string { return "DELETE|" + table }

func (Dialect) NormalizeType(sqlType string) string { return dialect.DefaultNormalizeType(sqlType) }

var _ dialect.Dialect = Dialect{}

// TypeName spells families the way the catalog parses them back.
func (Dialect) TypeName(family string, length, precision, scale int) string {
	switch family {
	case "varchar":
		if length > 0 {
			return fmt.Sprintf("varchar(%d)", length)
		}
		return "varchar"
	case "decimal":
		if precision > 0 {
			return fmt.Sprintf("numeric(%d,%d)", precision, scale)
		}
		return "numeric"
	case "biginteger":
		return "bigint"
	case "float":
		return "double precision"
	case "unknown":
		return "text"
	}
	return family
}

// AddColumnQuery renders ADDCOL|table|column|type|default|notnull, with the default
// as an SQL literal (empty for none).
func (Dialect) AddColumnQuery(table, column, sqlType string, def any, notNull bool) string {
	lit := ""
	if def != nil {
		lit = dialect.Literal(def)
	}
	return fmt.Sprintf("ADDCOL|%s|%s|%s|%s|%t", table, column, sqlType, lit, notNull)
}
