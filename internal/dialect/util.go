package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

// GeneratePlaceholders is a helper function to create a slice of placeholder strings.
// The first placeholder gets index start; the result is comma-separated.
func GeneratePlaceholders(start, count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(start + i)
	}
	return strings.Join(placeholders, ", ")
}

// QuoteList quotes every identifier and joins them with commas.
func QuoteList(names []string, quote func(string) string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote(n)
	}
	return strings.Join(quoted, ", ")
}

// multiRowInsert builds INSERT INTO t (..) VALUES (..), (..) for engines supporting row constructors.
func multiRowInsert(d Dialect, table string, cols []string, rows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", d.QuoteIdent(table), QuoteList(cols, d.QuoteIdent))
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		b.WriteString(GeneratePlaceholders(r*len(cols), len(cols), d.Placeholder))
		b.WriteString(")")
	}
	return b.String()
}

func orderClause(d Dialect, orderBy []string) string {
	if len(orderBy) == 0 {
		return ""
	}
	return " ORDER BY " + QuoteList(orderBy, d.QuoteIdent)
}

func selectList(d Dialect, cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	return QuoteList(cols, d.QuoteIdent)
}

// DefaultNormalizeType is a default implementation for type normalization (lowercase, trimmed).
func DefaultNormalizeType(sqlType string) string {
	return strings.TrimSpace(strings.ToLower(sqlType))
}

// Expr is a column default written verbatim, such as CURRENT_TIMESTAMP.
type Expr string

// Literal renders a Go value as an SQL literal. Booleans come out as TRUE/FALSE;
// engines without boolean literals convert them first.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case Expr:
		return string(x)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	default:
		return Literal(fmt.Sprint(x))
	}
}

// bitDefault turns a boolean default into 1/0.
func bitDefault(def any) any {
	if b, ok := def.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return def
}

// addColumn fills format ("ALTER TABLE %s ADD COLUMN %s") with the quoted table and
// the column definition.
func addColumn(d Dialect, format, table, column, sqlType string, def any, notNull bool) string {
	col := d.QuoteIdent(column) + " " + sqlType
	if def != nil {
		col += " DEFAULT " + Literal(def)
	}
	if notNull {
		col += " NOT NULL"
	}
	return fmt.Sprintf(format, d.QuoteIdent(table), col)
}

// sized appends (n) or (p,s) when the length or precision is known, else uses fallback.
func sized(name string, args []int, fallback string) string {
	if args[0] <= 0 {
		return fallback
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strconv.Itoa(a)
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}
