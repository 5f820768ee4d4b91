// Package database wraps the wire clients behind one Handle per system: a single
// long-lived session that survives broken connections by reconnecting and replaying
// its session statements.
package database

import (
	"context"

	"db-migrate/internal/dialect"
)

// Handle is the engine's view of one relational system. A Handle owns exactly one
// connection and is not safe for concurrent use.
type Handle interface {
	// Label names the system in logs ("source", "target").
	Label() string
	Dialect() dialect.Dialect

	Query(ctx context.Context, query string, args ...any) (*ResultSet, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	// ExecAtomic runs all statements in one transaction.
	ExecAtomic(ctx context.Context, stmts []Statement) error
	// ExecSession runs a session-scoped statement and replays it after a reconnect.
	ExecSession(ctx context.Context, stmt string) error

	Close() error
}

// Statement is a query with its bind arguments.
type Statement struct {
	Query string
	Args  []any
}

// ResultSet is a fully read query result. Pages are bounded by the batch size, so
// the engine never materializes more than one page per table at a time.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Strings returns the first column of every row as text.
func (r *ResultSet) Strings() []string {
	out := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		if len(row) == 0 {
			continue
		}
		out = append(out, asString(row[0]))
	}
	return out
}

// Int64 returns the first column of the first row as an integer.
func (r *ResultSet) Int64() (int64, bool) {
	if len(r.Rows) == 0 || len(r.Rows[0]) == 0 {
		return 0, false
	}
	return asInt64(r.Rows[0][0])
}
