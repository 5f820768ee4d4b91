package database_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"db-migrate/internal/database"
)

func TestDetectDriver(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"postgres://u:p@localhost:5432/app", "pgx"},
		{"postgresql://localhost/app", "pgx"},
		{"host=localhost dbname=app sslmode=disable", "pgx"},
		{"sqlserver://sa:pw@localhost:1433?database=app", "sqlserver"},
		{"oracle://system:pw@localhost:1521/XE", "oracle"},
		{"root:root@tcp(127.0.0.1:3306)/legacy", "mysql"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, database.DetectDriver(tt.dsn), tt.dsn)
	}
}

func TestIsPrivilegeError(t *testing.T) {
	assert.True(t, database.IsPrivilegeError(&pgconn.PgError{Code: "42501"}))
	assert.True(t, database.IsPrivilegeError(fmt.Errorf("suspend: %w", &pq.Error{Code: "42501"})))
	assert.True(t, database.IsPrivilegeError(&mysql.MySQLError{Number: 1227}))
	assert.True(t, database.IsPrivilegeError(mssql.Error{Number: 229}))
	assert.True(t, database.IsPrivilegeError(errors.New("ORA-01031: insufficient privileges")))
	assert.True(t, database.IsPrivilegeError(database.ErrInsufficientPrivilege))

	assert.False(t, database.IsPrivilegeError(nil))
	assert.False(t, database.IsPrivilegeError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, database.IsPrivilegeError(&mysql.MySQLError{Number: 1062}))
}

func TestIsConnectionLost(t *testing.T) {
	assert.True(t, database.IsConnectionLost(driver.ErrBadConn))
	assert.True(t, database.IsConnectionLost(fmt.Errorf("read: %w", mysql.ErrInvalidConn)))
	assert.True(t, database.IsConnectionLost(context.DeadlineExceeded))
	assert.True(t, database.IsConnectionLost(&pgconn.PgError{Code: "08006"}))

	assert.False(t, database.IsConnectionLost(nil))
	assert.False(t, database.IsConnectionLost(&pgconn.PgError{Code: "23502"}))
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, database.IsAuthError(&pgconn.PgError{Code: "28P01"}))
	assert.True(t, database.IsAuthError(&mysql.MySQLError{Number: 1045}))
	assert.False(t, database.IsAuthError(errors.New("boom")))
}

func TestConnectivityErrorUnwraps(t *testing.T) {
	err := &database.ConnectivityError{System: "target", Err: driver.ErrBadConn}
	assert.ErrorIs(t, err, driver.ErrBadConn)
	assert.Contains(t, err.Error(), "target unreachable")
}

func TestConnectivityErrorNamesAuthFailures(t *testing.T) {
	auth := &database.ConnectivityError{System: "source", Err: &mysql.MySQLError{Number: 1045, Message: "Access denied"}}
	assert.Contains(t, auth.Error(), "source rejected the credentials")
	assert.NotContains(t, auth.Error(), "unreachable")

	ora := &database.ConnectivityError{System: "source", Err: errors.New("ORA-01017: invalid username/password")}
	assert.Contains(t, ora.Error(), "rejected the credentials")
}

func TestResultSetHelpers(t *testing.T) {
	rs := &database.ResultSet{
		Columns: []string{"name"},
		Rows:    [][]any{{[]byte("users")}, {"orders"}, {}},
	}
	assert.Equal(t, []string{"users", "orders"}, rs.Strings())

	count := &database.ResultSet{Rows: [][]any{{[]byte("42")}}}
	n, ok := count.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = (&database.ResultSet{}).Int64()
	assert.False(t, ok)
}
