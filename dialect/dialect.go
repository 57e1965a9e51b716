package dialect

import (
	"context"
	"strconv"
	"strings"
)

// Dialect names.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// Result summarizes an executed statement.
type Result interface {
	RowsAffected() (int64, error)
}

// Rows is a forward-only cursor over a result set.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// ExecQuerier runs statements with positional arguments.
type ExecQuerier interface {
	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	// Query executes a statement that returns rows.
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Driver is an ExecQuerier that owns a connection pool.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connections.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx is a transaction scoped ExecQuerier.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Normalize maps driver names such as "pgx", "sqlite3" or "postgresql"
// to one of the dialect constants. Unknown names are returned unchanged.
func Normalize(name string) string {
	switch n := strings.ToLower(name); {
	case strings.HasPrefix(n, "postgres"), n == "pgx", n == "pq":
		return Postgres
	case strings.HasPrefix(n, "mysql"), n == "mariadb":
		return MySQL
	case strings.HasPrefix(n, "sqlite"):
		return SQLite
	default:
		return name
	}
}

// Placeholder returns the n-th (1-based) positional placeholder of the dialect.
func Placeholder(d string, n int) string {
	if d == MySQL {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// Quote quotes an identifier for the dialect.
func Quote(d, ident string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Table renders a table reference. SQLite and MySQL have no
// schema namespace in the sense Postgres has, so only the table is quoted.
func Table(d, schema, table string) string {
	if d == SQLite || d == MySQL || schema == "" {
		return Quote(d, table)
	}
	return Quote(d, schema) + "." + Quote(d, table)
}
