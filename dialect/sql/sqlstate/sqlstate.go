// Package sqlstate inspects driver errors.
//
// It understands the error types of the drivers tablekit ships with
// (pgx, lib/pq, go-sql-driver/mysql and modernc.org/sqlite) and any error
// exposing a SQLState() string method, and falls back to message matching
// for drivers that expose neither.
package sqlstate

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLSTATE codes and classes.
const (
	ClassDataException       = "22"
	ClassIntegrityConstraint = "23"
	ClassSyntax              = "42"

	UniqueViolation     = "23505"
	ForeignKeyViolation = "23503"
	CheckViolation      = "23514"
	NotNullViolation    = "23502"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// sqlStateError is implemented by drivers exposing SQLSTATE codes.
type sqlStateError interface {
	SQLState() string
}

// Code returns the SQLSTATE code carried by err. SQLite result codes,
// which have no SQLSTATE, are mapped onto the closest class.
func Code(err error) (string, bool) {
	if e, ok := asError[*pgconn.PgError](err); ok {
		return e.Code, true
	}
	if e, ok := asError[*pq.Error](err); ok {
		return string(e.Code), true
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		if e.SQLState == [5]byte{} {
			return "", false
		}
		return string(e.SQLState[:]), true
	}
	if e, ok := asError[*sqlite.Error](err); ok {
		return sqliteState(e.Code())
	}
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState(), true
	}
	return "", false
}

func sqliteState(code int) (string, bool) {
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return UniqueViolation, true
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return ForeignKeyViolation, true
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return CheckViolation, true
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return NotNullViolation, true
	}
	switch code & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return ClassIntegrityConstraint + "000", true
	case sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_RANGE, sqlite3.SQLITE_TOOBIG:
		return ClassDataException + "000", true
	case sqlite3.SQLITE_ERROR:
		return ClassSyntax + "000", true
	}
	return "", false
}

// IsDatabase reports whether err was raised by the database server, as
// opposed to the client, the network or the caller.
func IsDatabase(err error) bool {
	if _, ok := asError[*pgconn.PgError](err); ok {
		return true
	}
	if _, ok := asError[*pq.Error](err); ok {
		return true
	}
	if _, ok := asError[*mysql.MySQLError](err); ok {
		return true
	}
	if _, ok := asError[*sqlite.Error](err); ok {
		return true
	}
	_, ok := asError[sqlStateError](err)
	return ok
}

// IsNoRows reports whether err signals an empty result for a single-row fetch.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

// IsConnection reports whether err is a transport, protocol, TLS or pool
// failure rather than a statement failure.
func IsConnection(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range []error{
		driver.ErrBadConn,
		sql.ErrConnDone,
		io.EOF,
		io.ErrUnexpectedEOF,
		context.DeadlineExceeded,
		mysql.ErrInvalidConn,
		mysql.ErrMalformPkt,
		mysql.ErrPktSync,
		mysql.ErrBusyBuffer,
		mysql.ErrNoTLS,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	if pgconn.Timeout(err) {
		return true
	}
	if _, ok := asError[*pgconn.ConnectError](err); ok {
		return true
	}
	if _, ok := asError[net.Error](err); ok {
		return true
	}
	if _, ok := asError[tls.RecordHeaderError](err); ok {
		return true
	}
	if _, ok := asError[*tls.CertificateVerificationError](err); ok {
		return true
	}
	if _, ok := asError[x509.UnknownAuthorityError](err); ok {
		return true
	}
	if _, ok := asError[x509.HostnameError](err); ok {
		return true
	}
	if e, ok := asError[*sqlite.Error](err); ok {
		switch e.Code() & 0xff {
		case sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_BUSY:
			return true
		}
	}
	return false
}

// IsConstraint reports whether err is a unique, foreign-key or check
// constraint violation.
func IsConstraint(err error) bool {
	return IsUnique(err) || IsForeignKey(err) || IsCheck(err)
}

// IsUnique reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUnique(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := Code(err); ok && code == UniqueViolation {
		return true
	}
	if e, ok := asError[*mysql.MySQLError](err); ok && e.Number == mysqlDuplicateEntry {
		return true
	}
	// Fallback to string matching for drivers that don't implement interfaces
	return containsAny(err.Error(),
		"Error 1062",                 // MySQL (string fallback)
		"violates unique constraint", // Postgres (string fallback)
		"UNIQUE constraint failed",   // SQLite
	)
}

// IsForeignKey reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKey(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := Code(err); ok && code == ForeignKeyViolation {
		return true
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		if e.Number == mysqlForeignKeyParent || e.Number == mysqlForeignKeyChild {
			return true
		}
	}
	return containsAny(err.Error(),
		"Error 1451",                      // MySQL (Cannot delete or update a parent row)
		"Error 1452",                      // MySQL (Cannot add or update a child row)
		"violates foreign key constraint", // Postgres
		"FOREIGN KEY constraint failed",   // SQLite
	)
}

// IsCheck reports if the error resulted from a database check constraint violation.
// e.g. a value does not satisfy a check condition.
func IsCheck(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := Code(err); ok && code == CheckViolation {
		return true
	}
	if e, ok := asError[*mysql.MySQLError](err); ok && e.Number == mysqlCheckConstraintViolate {
		return true
	}
	return containsAny(err.Error(),
		"Error 3819",                // MySQL
		"violates check constraint", // Postgres
		"CHECK constraint failed",   // SQLite
	)
}

// asError attempts to extract an error of type T from the error tree.
func asError[T any](err error) (T, bool) {
	var target T
	if err == nil {
		return target, false
	}
	ok := errors.As(err, &target)
	return target, ok
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
