package database

import (
	"context"
	"strings"

	"db-migrate/internal/dialect"
)

// DetectDriver guesses the driver from a DSN: URL schemes first, then the
// key=value markers lib/pq accepts, falling back to MySQL's user:pass@tcp(...) form.
func DetectDriver(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "pgx"
	case strings.HasPrefix(lower, "sqlserver://"):
		return "sqlserver"
	case strings.HasPrefix(lower, "oracle://"):
		return "oracle"
	case strings.Contains(lower, "sslmode=") || strings.Contains(lower, "dbname="):
		return "pgx"
	default:
		return "mysql"
	}
}

// Open connects to one system. driver may be empty, in which case it is detected
// from the DSN. "pgx" uses the native pgx connection; everything else goes through
// database/sql ("postgres" selects lib/pq).
func Open(ctx context.Context, label, driver, dsn string) (Handle, error) {
	if driver == "" {
		driver = DetectDriver(dsn)
	}
	d, err := dialect.GetDialect(driver)
	if err != nil {
		return nil, &ConnectivityError{System: label, Err: err}
	}
	if driver == "pgx" {
		return openPgx(ctx, label, dsn)
	}
	return openSQL(ctx, label, driver, dsn, d)
}
