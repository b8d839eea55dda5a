package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// transientSQLStates lists Postgres error codes where retrying the whole
// transaction is expected to succeed.
var transientSQLStates = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
	"57014": {}, // query_canceled (statement_timeout)
	"57P01": {}, // admin_shutdown
	"53300": {}, // too_many_connections
}

// IsTransient reports whether err is a contention or connectivity failure
// that leaves no partial writes behind and can be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	code := sqlState(err)
	if code == "" {
		// sqlite reports "database is locked" or, in shared-cache mode,
		// "database table is locked".
		return strings.Contains(err.Error(), "is locked")
	}
	if _, ok := transientSQLStates[code]; ok {
		return true
	}
	// class 08: connection exceptions
	return strings.HasPrefix(code, "08")
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
