package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"db-migrate/internal/dialect"
)

// pgxHandle drives a single pgx connection in simple protocol mode, so bind values
// are sent as literals and the server applies its own casts.
type pgxHandle struct {
	label   string
	cfg     *pgx.ConnConfig
	dialect dialect.Dialect
	conn    *pgx.Conn
	session []string
	log     *log.Entry
}

func openPgx(ctx context.Context, label, dsn string) (*pgxHandle, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s dsn: %w", label, err)
	}
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	h := &pgxHandle{
		label:   label,
		cfg:     cfg,
		dialect: &dialect.PostgresDialect{},
		log:     log.WithField("system", label),
	}
	if err := h.connect(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *pgxHandle) connect(ctx context.Context) error {
	if h.conn != nil && !h.conn.IsClosed() {
		return nil
	}
	conn, err := pgx.ConnectConfig(ctx, h.cfg)
	if err != nil {
		return &ConnectivityError{System: h.label, Err: err}
	}
	stmts := append(append([]string{}, h.dialect.SessionStatements()...), h.session...)
	for _, s := range stmts {
		if _, err := conn.Exec(ctx, s); err != nil {
			conn.Close(context.WithoutCancel(ctx))
			return fmt.Errorf("failed to run session statement %q on %s: %w", s, h.label, err)
		}
	}
	h.conn = conn
	return nil
}

// observe drops the connection when pgx closed it (cancellation closes the
// connection) or the server reports a connection exception.
func (h *pgxHandle) observe(err error) error {
	if err == nil || h.conn == nil {
		return err
	}
	if h.conn.IsClosed() || IsConnectionLost(err) {
		h.log.WithError(err).Warn("connection lost, will reconnect")
		h.conn.Close(context.Background())
		h.conn = nil
	}
	return err
}

func (h *pgxHandle) Label() string            { return h.label }
func (h *pgxHandle) Dialect() dialect.Dialect { return h.dialect }

func (h *pgxHandle) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	if err := h.connect(ctx); err != nil {
		return nil, err
	}
	rows, err := h.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, h.observe(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	rs := &ResultSet{Columns: make([]string, len(fields))}
	for i, f := range fields {
		rs.Columns[i] = f.Name
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, h.observe(err)
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, h.observe(err)
	}
	return rs, nil
}

func (h *pgxHandle) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if err := h.connect(ctx); err != nil {
		return 0, err
	}
	tag, err := h.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, h.observe(err)
	}
	return tag.RowsAffected(), nil
}

func (h *pgxHandle) ExecAtomic(ctx context.Context, stmts []Statement) error {
	if err := h.connect(ctx); err != nil {
		return err
	}
	err := pgx.BeginFunc(ctx, h.conn, func(tx pgx.Tx) error {
		for _, s := range stmts {
			if _, err := tx.Exec(ctx, s.Query, s.Args...); err != nil {
				return err
			}
		}
		return nil
	})
	return h.observe(err)
}

func (h *pgxHandle) ExecSession(ctx context.Context, stmt string) error {
	if err := h.connect(ctx); err != nil {
		return err
	}
	if _, err := h.conn.Exec(ctx, stmt); err != nil {
		return h.observe(err)
	}
	h.session = append(h.session, stmt)
	return nil
}

func (h *pgxHandle) Close() error {
	if h.conn == nil {
		return nil
	}
	err := h.conn.Close(context.Background())
	h.conn = nil
	return err
}
