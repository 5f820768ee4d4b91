package dialect

import (
	"fmt"
	"strings"
)

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string { return "mysql" }

func (d *MysqlDialect) TablesQuery() string {
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
}

func (d *MysqlDialect) ColumnsQuery() string {
	return `SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT, COLUMN_KEY, EXTRA FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`
}

func (d *MysqlDialect) ForeignKeysQuery() string {
	return `SELECT COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) SessionStatements() []string {
	return []string{"SET NAMES utf8mb4"}
}

func (d *MysqlDialect) SuspendStatements(tables []string) []string {
	return []string{"SET FOREIGN_KEY_CHECKS = 0"}
}

func (d *MysqlDialect) RestoreStatements(tables []string) []string {
	return []string{"SET FOREIGN_KEY_CHECKS = 1"}
}

func (d *MysqlDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) MaxBindParams() int {
	return 65535
}

func (d *MysqlDialect) SelectPageQuery(table string, cols, orderBy []string, limit, offset int) string {
	return fmt.Sprintf("SELECT %s FROM %s%s LIMIT %d OFFSET %d",
		selectList(d, cols), d.QuoteIdent(table), orderClause(d, orderBy), limit, offset)
}

func (d *MysqlDialect) CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
}

func (d *MysqlDialect) InsertQuery(table string, cols []string, rows int) string {
	return multiRowInsert(d, table, cols, rows)
}

func (d *MysqlDialect) DeleteQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", d.QuoteIdent(table))
}

func (d *MysqlDialect) NormalizeType(sqlType string) string {
	return strings.TrimSpace(strings.TrimSuffix(DefaultNormalizeType(sqlType), "zerofill"))
}

func (d *MysqlDialect) TypeName(family string, length, precision, scale int) string {
	switch family {
	case "integer":
		return "int"
	case "biginteger":
		return "bigint"
	case "float":
		return "double"
	case "decimal":
		return sized("decimal", []int{precision, max(scale, 0)}, "decimal(10,2)")
	case "boolean":
		return "tinyint(1)"
	case "varchar":
		return sized("varchar", []int{length}, "varchar(255)")
	case "timestamp":
		return "datetime"
	case "date":
		return "date"
	case "json":
		return "json"
	default:
		return "longtext"
	}
}

func (d *MysqlDialect) AddColumnQuery(table, column, sqlType string, def any, notNull bool) string {
	return addColumn(d, "ALTER TABLE %s ADD COLUMN %s", table, column, sqlType, def, notNull)
}
