package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"

	"db-migrate/internal/dialect"
)

// sqlHandle drives one pinned database/sql connection.
type sqlHandle struct {
	label   string
	driver  string
	dialect dialect.Dialect
	db      *sql.DB
	conn    *sql.Conn
	session []string
	log     *log.Entry
}

func openSQL(ctx context.Context, label, driver, dsn string, d dialect.Dialect) (*sqlHandle, error) {
	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", label, err)
	}
	// One session per system: FK suspension is session scoped.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &sqlHandle{
		label:   label,
		driver:  driver,
		dialect: d,
		db:      db,
		log:     log.WithField("system", label),
	}
	if err := h.connect(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// sqlOpen forces parseTime on MySQL so DATETIME columns arrive as time.Time and
// zero dates as the zero time.
func sqlOpen(driver, dsn string) (*sql.DB, error) {
	if driver != "mysql" {
		return sql.Open(driver, dsn)
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ParseTime = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

func (h *sqlHandle) connect(ctx context.Context) error {
	if h.conn != nil {
		return nil
	}
	conn, err := h.db.Conn(ctx)
	if err != nil {
		return &ConnectivityError{System: h.label, Err: err}
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return &ConnectivityError{System: h.label, Err: err}
	}
	stmts := append(append([]string{}, h.dialect.SessionStatements()...), h.session...)
	for _, s := range stmts {
		if _, err := conn.ExecContext(ctx, s); err != nil {
			conn.Close()
			return fmt.Errorf("failed to run session statement %q on %s: %w", s, h.label, err)
		}
	}
	h.conn = conn
	return nil
}

// observe drops the pinned connection when err shows it is gone, so the next call
// reconnects and replays the session.
func (h *sqlHandle) observe(err error) error {
	if err != nil && IsConnectionLost(err) && h.conn != nil {
		h.log.WithError(err).Warn("connection lost, will reconnect")
		h.conn.Close()
		h.conn = nil
	}
	return err
}

func (h *sqlHandle) Label() string            { return h.label }
func (h *sqlHandle) Dialect() dialect.Dialect { return h.dialect }

func (h *sqlHandle) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	if err := h.connect(ctx); err != nil {
		return nil, err
	}
	rows, err := h.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, h.observe(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, h.observe(err)
	}
	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, h.observe(err)
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, h.observe(err)
	}
	return rs, nil
}

func (h *sqlHandle) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if err := h.connect(ctx); err != nil {
		return 0, err
	}
	res, err := h.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, h.observe(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Not every driver reports affected rows.
		return 0, nil
	}
	return n, nil
}

func (h *sqlHandle) ExecAtomic(ctx context.Context, stmts []Statement) error {
	if err := h.connect(ctx); err != nil {
		return err
	}
	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return h.observe(err)
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.Query, s.Args...); err != nil {
			tx.Rollback()
			return h.observe(err)
		}
	}
	return h.observe(tx.Commit())
}

func (h *sqlHandle) ExecSession(ctx context.Context, stmt string) error {
	if err := h.connect(ctx); err != nil {
		return err
	}
	if _, err := h.conn.ExecContext(ctx, stmt); err != nil {
		return h.observe(err)
	}
	h.session = append(h.session, stmt)
	return nil
}

func (h *sqlHandle) Close() error {
	if h.conn != nil {
		h.conn.Close()
		h.conn = nil
	}
	return h.db.Close()
}
