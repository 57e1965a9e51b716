// Package dialect provides the database dialect abstraction for tablekit.
//
// It names the supported backends and defines the executor capability the
// core consumes. The core never opens connections itself: every entity
// operation receives an ExecQuerier supplied by the caller.
//
// # Supported Dialects
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Executor Interfaces
//
//	type ExecQuerier interface {
//	    Exec(ctx context.Context, query string, args ...any) (Result, error)
//	    Query(ctx context.Context, query string, args ...any) (Rows, error)
//	}
//
// Driver and Tx extend ExecQuerier with connection and transaction control.
// Implementations live in the sub-packages:
//
//   - dialect/sql: database/sql backed driver with statistics and debug wrappers
//   - dialect/pgxdriver: native pgx pool and transaction executor
//   - dialect/sql/sqlgen: statement compiler
//   - dialect/sql/sqlstate: driver error inspection
package dialect
