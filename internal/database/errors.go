package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrInsufficientPrivilege is returned when the session lacks the right to run an
// administrative statement (for example disabling FK enforcement).
var ErrInsufficientPrivilege = errors.New("insufficient privilege")

// ConnectivityError is a network or authentication failure talking to a system.
// It is fatal for the run.
type ConnectivityError struct {
	System string
	Err    error
}

func (e *ConnectivityError) Error() string {
	if IsAuthError(e.Err) {
		return fmt.Sprintf("%s rejected the credentials: %v", e.System, e.Err)
	}
	return fmt.Sprintf("%s unreachable: %v", e.System, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// IsPrivilegeError reports whether err is a permission denial from any supported engine.
func IsPrivilegeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInsufficientPrivilege) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42501"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42501"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// ER_DBACCESS_DENIED_ERROR, ER_SPECIFIC_ACCESS_DENIED_ERROR, ER_TABLEACCESS_DENIED_ERROR
		return myErr.Number == 1044 || myErr.Number == 1227 || myErr.Number == 1142
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == 229 || msErr.Number == 1088 || msErr.Number == 4701
	}
	return strings.Contains(err.Error(), "ORA-01031")
}

// IsConnectionLost reports whether err means the session itself is gone, as opposed
// to the statement being rejected.
func IsConnectionLost(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception.
		return strings.HasPrefix(pgErr.Code, "08")
	}
	return pgconn.SafeToRetry(err)
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "28P01" || pgErr.Code == "28000"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "28P01" || pqErr.Code == "28000"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1045
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == 18456
	}
	return strings.Contains(err.Error(), "ORA-01017")
}
