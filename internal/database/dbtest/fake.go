// Package dbtest provides an in-memory database.Handle for tests. It speaks a small
// structured query language through its own Dialect and enforces NOT NULL, unique
// and foreign-key constraints on insert so failure paths can be exercised.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"db-migrate/internal/database"
	"db-migrate/internal/dialect"
)

// Column declares one column of a fake table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Default  *string
	PK       bool
	Unique   bool
	AutoInc  bool
}

// FK declares an outgoing reference.
type FK struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Table is a fake table and its rows. Rows are keyed by column name.
type Table struct {
	Name    string
	Columns []Column
	FKs     []FK
	Rows    []map[string]any
}

// Fake is an in-memory system.
type Fake struct {
	label string

	mu        sync.Mutex
	tables    []*Table
	suspended bool

	// Hook runs before every statement; a non-nil error is returned in its place.
	Hook func(query string) error
	// DenySuspend makes SUSPEND fail with a privilege error.
	DenySuspend bool

	// Log records every statement that reached the fake, in order.
	Log []string
}

func New(label string, tables ...*Table) *Fake {
	return &Fake{label: label, tables: tables}
}

// Str is a helper for Column.Default.
func Str(s string) *string { return &s }

// Table returns a fake table by name.
func (f *Fake) Table(name string) *Table {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.table(name)
}

func (f *Fake) table(name string) *Table {
	for _, t := range f.tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Suspended reports whether FK enforcement is currently off.
func (f *Fake) Suspended() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suspended
}

// Count returns the number of rows in a table.
func (f *Fake) Count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t := f.table(name); t != nil {
		return len(t.Rows)
	}
	return 0
}

// Statements returns the logged statements starting with prefix.
func (f *Fake) Statements(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, q := range f.Log {
		if strings.HasPrefix(q, prefix) {
			out = append(out, q)
		}
	}
	return out
}

func (f *Fake) Label() string            { return f.label }
func (f *Fake) Dialect() dialect.Dialect { return Dialect{} }
func (f *Fake) Close() error             { return nil }

func (f *Fake) before(query string) error {
	f.Log = append(f.Log, query)
	if f.Hook != nil {
		return f.Hook(query)
	}
	return nil
}

func (f *Fake) Query(ctx context.Context, query string, args ...any) (*database.ResultSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.before(query); err != nil {
		return nil, err
	}

	parts := strings.Split(query, "|")
	switch parts[0] {
	case "TABLES":
		rs := &database.ResultSet{Columns: []string{"name"}}
		for _, t := range f.tables {
			rs.Rows = append(rs.Rows, []any{t.Name})
		}
		return rs, nil
	case "COLUMNS":
		t := f.table(fmt.Sprint(args[0]))
		rs := &database.ResultSet{Columns: []string{"name", "type", "nullable", "default", "key", "extra"}}
		if t == nil {
			return rs, nil
		}
		for _, c := range t.Columns {
			nullable, key, extra := "NO", "", ""
			if c.Nullable {
				nullable = "YES"
			}
			if c.PK {
				key = "PRI"
			}
			if c.AutoInc {
				extra = "auto_increment"
			}
			var def any
			if c.Default != nil {
				def = *c.Default
			}
			rs.Rows = append(rs.Rows, []any{c.Name, c.Type, nullable, def, key, extra})
		}
		return rs, nil
	case "FKS":
		t := f.table(fmt.Sprint(args[0]))
		rs := &database.ResultSet{Columns: []string{"column", "ref_table", "ref_column"}}
		if t == nil {
			return rs, nil
		}
		for _, fk := range t.FKs {
			rs.Rows = append(rs.Rows, []any{fk.Column, fk.RefTable, fk.RefColumn})
		}
		return rs, nil
	case "COUNT":
		t := f.table(parts[1])
		if t == nil {
			return nil, fmt.Errorf("relation %q does not exist", parts[1])
		}
		return &database.ResultSet{Columns: []string{"count"}, Rows: [][]any{{int64(len(t.Rows))}}}, nil
	case "SELECT":
		return f.selectPage(parts)
	}
	return nil, fmt.Errorf("dbtest: unsupported query %q", query)
}

// selectPage serves SELECT|table|cols|order|limit|offset in insertion order.
func (f *Fake) selectPage(parts []string) (*database.ResultSet, error) {
	t := f.table(parts[1])
	if t == nil {
		return nil, fmt.Errorf("relation %q does not exist", parts[1])
	}
	cols := splitList(parts[2])
	if len(cols) == 0 {
		for _, c := range t.Columns {
			cols = append(cols, c.Name)
		}
	}
	limit, _ := strconv.Atoi(parts[4])
	offset, _ := strconv.Atoi(parts[5])

	rs := &database.ResultSet{Columns: cols}
	for i := offset; i < len(t.Rows) && i < offset+limit; i++ {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = t.Rows[i][c]
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, nil
}

func (f *Fake) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.before(query); err != nil {
		return 0, err
	}
	return f.exec(query, args)
}

func (f *Fake) exec(query string, args []any) (int64, error) {
	parts := strings.Split(query, "|")
	switch parts[0] {
	case "INSERT":
		return f.insert(parts, args)
	case "DELETE":
		t := f.table(parts[1])
		if t == nil {
			return 0, fmt.Errorf("relation %q does not exist", parts[1])
		}
		n := int64(len(t.Rows))
		t.Rows = nil
		return n, nil
	case "SUSPEND":
		if f.DenySuspend {
			return 0, fmt.Errorf("permission denied to set parameter: %w", database.ErrInsufficientPrivilege)
		}
		f.suspended = true
		return 0, nil
	case "RESTORE":
		f.suspended = false
		return 0, nil
	case "SESSION":
		return 0, nil
	case "ADDCOL":
		return 0, f.addColumn(parts)
	}
	return 0, fmt.Errorf("dbtest: unsupported statement %q", query)
}

func (f *Fake) insert(parts []string, args []any) (int64, error) {
	t := f.table(parts[1])
	if t == nil {
		return 0, fmt.Errorf("relation %q does not exist", parts[1])
	}
	cols := splitList(parts[2])
	rows, _ := strconv.Atoi(parts[3])
	if len(args) != rows*len(cols) {
		return 0, fmt.Errorf("dbtest: %d args for %d rows of %d columns", len(args), rows, len(cols))
	}
	// A statement is all or nothing.
	before := len(t.Rows)
	for r := 0; r < rows; r++ {
		rec := make(map[string]any, len(t.Columns))
		for j, c := range cols {
			if !hasColumn(t, c) {
				t.Rows = t.Rows[:before]
				return 0, fmt.Errorf("column %q of relation %q does not exist", c, t.Name)
			}
			rec[c] = args[r*len(cols)+j]
		}
		if err := f.check(t, rec); err != nil {
			t.Rows = t.Rows[:before]
			return 0, err
		}
		t.Rows = append(t.Rows, rec)
	}
	return int64(rows), nil
}

// addColumn serves ADDCOL|table|column|type|default|notnull. Existing rows take the
// default; a NOT NULL column without one is refused when rows exist.
func (f *Fake) addColumn(parts []string) error {
	t := f.table(parts[1])
	if t == nil {
		return fmt.Errorf("relation %q does not exist", parts[1])
	}
	if hasColumn(t, parts[2]) {
		return fmt.Errorf("column %q of relation %q already exists", parts[2], t.Name)
	}
	col := Column{Name: parts[2], Type: parts[3], Nullable: parts[5] != "true"}
	var fill any
	if lit := parts[4]; lit != "" {
		if strings.HasPrefix(lit, "'") {
			lit = strings.ReplaceAll(strings.TrimSuffix(strings.TrimPrefix(lit, "'"), "'"), "''", "'")
		}
		col.Default = Str(lit)
		fill = lit
	}
	if fill == nil && !col.Nullable && len(t.Rows) > 0 {
		return fmt.Errorf("column %q of relation %q contains null values", col.Name, t.Name)
	}
	t.Columns = append(t.Columns, col)
	for _, r := range t.Rows {
		r[col.Name] = fill
	}
	return nil
}

func (f *Fake) check(t *Table, rec map[string]any) error {
	for _, c := range t.Columns {
		v, set := rec[c.Name]
		if !set && c.Default != nil {
			rec[c.Name] = *c.Default
			continue
		}
		if v == nil && !c.Nullable && !c.AutoInc {
			return fmt.Errorf("null value in column %q of relation %q violates not-null constraint", c.Name, t.Name)
		}
		if (c.PK || c.Unique) && v != nil {
			for _, existing := range t.Rows {
				if fmt.Sprint(existing[c.Name]) == fmt.Sprint(v) {
					return fmt.Errorf("duplicate key value violates unique constraint \"%s_%s_key\"", t.Name, c.Name)
				}
			}
		}
	}
	if f.suspended {
		return nil
	}
	for _, fk := range t.FKs {
		v := rec[fk.Column]
		if v == nil {
			continue
		}
		ref := f.table(fk.RefTable)
		found := false
		if ref != nil {
			for _, r := range ref.Rows {
				if fmt.Sprint(r[fk.RefColumn]) == fmt.Sprint(v) {
					found = true
					break
				}
			}
		}
		if !found {
			return fmt.Errorf("insert on table %q violates foreign key constraint on %q", t.Name, fk.Column)
		}
	}
	return nil
}

func (f *Fake) ExecAtomic(ctx context.Context, stmts []database.Statement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := make(map[*Table][]map[string]any, len(f.tables))
	for _, t := range f.tables {
		snapshot[t] = append([]map[string]any(nil), t.Rows...)
	}
	for _, s := range stmts {
		err := f.before(s.Query)
		if err == nil {
			_, err = f.exec(s.Query, s.Args)
		}
		if err != nil {
			for t, rows := range snapshot {
				t.Rows = rows
			}
			return err
		}
	}
	return nil
}

func (f *Fake) ExecSession(ctx context.Context, stmt string) error {
	_, err := f.Exec(ctx, stmt)
	return err
}

func hasColumn(t *Table, name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// ErrInjected is a convenience error for hooks.
var ErrInjected = errors.New("injected failure")

var _ database.Handle = (*Fake)(nil)
