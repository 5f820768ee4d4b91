package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"db-migrate/internal/database"
)

// Catalog reads live table metadata from one system. Results are memoized for the
// lifetime of the Catalog, which is one run.
type Catalog struct {
	db database.Handle

	mu      sync.Mutex
	tables  []string
	schemas map[string]*TableSchema
}

func NewCatalog(db database.Handle) *Catalog {
	return &Catalog{db: db, schemas: make(map[string]*TableSchema)}
}

// System names the system this catalog reads.
func (c *Catalog) System() string { return c.db.Label() }

// Tables lists the base tables of the current schema.
func (c *Catalog) Tables(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tablesLocked(ctx)
}

func (c *Catalog) tablesLocked(ctx context.Context) ([]string, error) {
	if c.tables != nil {
		return c.tables, nil
	}
	rs, err := c.db.Query(ctx, c.db.Dialect().TablesQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to query tables on %s: %w", c.System(), err)
	}
	c.tables = rs.Strings()
	return c.tables, nil
}

// Resolve returns the table's name as the system spells it. Exact matches win over
// case-insensitive ones.
func (c *Catalog) Resolve(ctx context.Context, table string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolveLocked(ctx, table)
}

func (c *Catalog) resolveLocked(ctx context.Context, table string) (string, error) {
	tables, err := c.tablesLocked(ctx)
	if err != nil {
		return "", err
	}
	match := ""
	for _, t := range tables {
		if t == table {
			return t, nil
		}
		if match == "" && strings.EqualFold(t, table) {
			match = t
		}
	}
	if match == "" {
		return "", &SchemaNotFoundError{System: c.System(), Table: table}
	}
	return match, nil
}

// Describe reads the columns and outgoing foreign keys of a table.
func (c *Catalog) Describe(ctx context.Context, table string) (*TableSchema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name, err := c.resolveLocked(ctx, table)
	if err != nil {
		return nil, err
	}
	if ts, ok := c.schemas[strings.ToLower(name)]; ok {
		return ts, nil
	}

	d := c.db.Dialect()
	ts := &TableSchema{Name: name}

	// --- Columns ---
	colRows, err := c.db.Query(ctx, d.ColumnsQuery(), name)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s on %s: %w", name, c.System(), err)
	}
	for i, row := range colRows.Rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("unexpected column metadata shape for %s: %d fields", name, len(row))
		}
		declared := database.String(row[1])
		def, hasDef := database.NullableString(row[3])
		extra := strings.ToLower(database.String(row[5]))
		autoInc := strings.Contains(extra, "auto_increment") ||
			strings.Contains(extra, "identity") ||
			strings.HasPrefix(strings.ToLower(def), "nextval(")

		col := ColumnDescriptor{
			Name:          database.String(row[0]),
			Type:          ParseType(d.NormalizeType(declared)),
			Nullable:      strings.EqualFold(database.String(row[2]), "YES"),
			Default:       def,
			HasDefault:    hasDef,
			PrimaryKey:    strings.Contains(strings.ToUpper(database.String(row[4])), "PRI"),
			AutoIncrement: autoInc,
			Position:      i + 1,
		}
		col.Type.Raw = declared
		ts.Columns = append(ts.Columns, col)
	}
	if len(ts.Columns) == 0 {
		return nil, &SchemaNotFoundError{System: c.System(), Table: table}
	}

	// --- Foreign Keys ---
	fkRows, err := c.db.Query(ctx, d.ForeignKeysQuery(), name)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys of %s on %s: %w", name, c.System(), err)
	}
	for _, row := range fkRows.Rows {
		if len(row) < 3 || row[1] == nil {
			continue
		}
		ts.ForeignKeys = append(ts.ForeignKeys, ForeignKey{
			Column:    database.String(row[0]),
			RefTable:  database.String(row[1]),
			RefColumn: database.String(row[2]),
		})
	}

	c.schemas[strings.ToLower(name)] = ts
	return ts, nil
}

// RowCount counts the rows of a table. Counts are never memoized.
func (c *Catalog) RowCount(ctx context.Context, table string) (int64, error) {
	name, err := c.Resolve(ctx, table)
	if err != nil {
		return 0, err
	}
	rs, err := c.db.Query(ctx, c.db.Dialect().CountQuery(name))
	if err != nil {
		return 0, fmt.Errorf("failed to count %s on %s: %w", name, c.System(), err)
	}
	n, ok := rs.Int64()
	if !ok {
		return 0, fmt.Errorf("failed to read row count of %s on %s", name, c.System())
	}
	return n, nil
}

// Sample reads up to n rows of a table ordered by its primary key, or by every
// column when it has none.
func (c *Catalog) Sample(ctx context.Context, table string, n int) (*database.ResultSet, error) {
	ts, err := c.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	cols := ts.ColumnNames()
	order := ts.PrimaryKey()
	if len(order) == 0 {
		order = cols
	}
	rs, err := c.db.Query(ctx, c.db.Dialect().SelectPageQuery(ts.Name, cols, order, n, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s on %s: %w", ts.Name, c.System(), err)
	}
	return rs, nil
}
