package errors

// Storage helpers for mapping Postgres and SQLite driver errors onto the persistence code,
// and for deciding whether a KV open or write is worth retrying

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	sqlite3 "modernc.org/sqlite/lib"
)

// Postgres SQLSTATE codes the KV backend cares about
const (
	pgErrSerializationFailure   = "40001"
	pgErrDeadlockDetected       = "40P01"
	pgErrLockNotAvailable       = "55P03"
	pgErrReadOnlySQLTransaction = "25006"
	pgErrCannotConnectNow       = "57P03" // startup in progress
	pgErrUndefinedTable         = "42P01"
)

// sqliteCoder matches *sqlite.Error from modernc.org/sqlite without importing the driver
type sqliteCoder interface {
	Code() int
}

// ExtractPgError returns (*pgconn.PgError, true) if the root cause is a PgError
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(Root(err), &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsSQLState reports whether the error is a Postgres error with the given SQLSTATE code
func IsSQLState(err error, code string) bool {
	pgErr, ok := ExtractPgError(err)
	return ok && pgErr.Code == code
}

// IsUndefinedTable reports whether a query hit a missing table (schema not migrated yet)
func IsUndefinedTable(err error) bool { return IsSQLState(err, pgErrUndefinedTable) }

// SQLiteCode returns the primary result code of a SQLite driver error
// extended codes are masked down to their primary code
func SQLiteCode(err error) (int, bool) {
	var c sqliteCoder
	if stderrs.As(err, &c) {
		return c.Code() & 0xff, true
	}
	return 0, false
}

// StorageCode maps a driver error to an ErrorCode with an ok flag
// !ok means err came from neither driver; caller may fall back to generic handling
func StorageCode(err error) (ErrorCode, bool) {
	if pgErr, ok := ExtractPgError(err); ok {
		switch pgErr.Code {
		case pgErrReadOnlySQLTransaction, pgErrCannotConnectNow:
			return ErrorCodeUnavailable, true
		}
		return ErrorCodePersistence, true
	}
	if code, ok := SQLiteCode(err); ok {
		switch code {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return ErrorCodeUnavailable, true
		}
		return ErrorCodePersistence, true
	}
	return ErrorCodeUnknown, false
}

// FromStorage wraps a driver error with a mapped ErrorCode and message
// If err is nil, returns nil
func FromStorage(err error, msg string) error {
	if err == nil {
		return nil
	}
	if code, ok := StorageCode(err); ok {
		return Wrap(err, code, msg)
	}
	return Wrap(err, ErrorCodePersistence, msg)
}

// FromStoragef is the formatted variant of FromStorage
func FromStoragef(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return FromStorage(err, fmt.Sprintf(format, a...))
}

// IsRetryable reports whether a storage error represents a transient condition
// worth retrying. It handles structured Postgres and SQLite codes plus the generic
// driver text seen while a database is still starting
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// local cancellations and timeouts are the caller's decision
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}

	root := Root(err)

	var pgErr *pgconn.PgError
	if stderrs.As(root, &pgErr) {
		switch pgErr.Code {
		case pgErrSerializationFailure, pgErrDeadlockDetected, pgErrLockNotAvailable, pgErrCannotConnectNow:
			return true
		default:
			return false
		}
	}

	if code, ok := SQLiteCode(err); ok {
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}

	s := strings.ToLower(root.Error())
	switch {
	case strings.Contains(s, "connection refused"),
		strings.Contains(s, "the database system is starting up"),
		strings.Contains(s, "database is locked"),
		strings.Contains(s, "deadlock detected"),
		strings.Contains(s, "could not serialize access"):
		return true
	default:
		return false
	}
}
