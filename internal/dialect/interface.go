package dialect

// Dialect abstracts database-specific SQL.
//
// Catalog queries take the table name as their only bind argument and resolve the
// schema from the session (DATABASE(), current_schema(), SCHEMA_NAME(), USER).
type Dialect interface {
	Name() string

	// Metadata Queries (Schema Introspection)
	// TablesQuery returns base table names, one column.
	TablesQuery() string
	// ColumnsQuery returns name, type, nullable (YES/NO), default, key (PRI) and extra
	// (auto_increment / identity) for one table, in ordinal order.
	ColumnsQuery() string
	// ForeignKeysQuery returns local column, referenced table and referenced column.
	ForeignKeysQuery() string

	// Session Hooks
	SessionStatements() []string
	SuspendStatements(tables []string) []string
	RestoreStatements(tables []string) []string

	// Query Generation
	QuoteIdent(name string) string
	Placeholder(index int) string // Returns ?, $1, @p1, :1
	MaxBindParams() int
	SelectPageQuery(table string, cols, orderBy []string, limit, offset int) string
	CountQuery(table string) string
	InsertQuery(table string, cols []string, rows int) string
	DeleteQuery(table string) string

	// Schema Changes
	// TypeName renders a type family ("integer", "varchar", "decimal", ...) with its
	// modifiers in this engine's spelling.
	TypeName(family string, length, precision, scale int) string
	// AddColumnQuery adds a column; def is nil, an Expr, or a Go value rendered by Literal.
	AddColumnQuery(table, column, sqlType string, def any, notNull bool) string

	// Helpers
	NormalizeType(sqlType string) string
}
