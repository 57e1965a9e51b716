// Package sql implements the dialect executor interfaces over database/sql.
//
// It registers the lib/pq, go-sql-driver/mysql and modernc.org/sqlite
// drivers, so opening a database only needs a dialect name and a DSN:
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://localhost/forest?sslmode=disable")
//	if err != nil {
//	    return err
//	}
//	defer drv.Close()
//
//	tree, err := Trees.Read(ctx, drv, 42)
//
// # Session Variables
//
// WithVar attaches session variables to a context. They are SET on the
// connection before every statement run with that context and reset when
// the connection is released:
//
//	ctx = sql.WithVar(ctx, "app.tenant_id", "acme")
//
// Session variables are a Postgres and MySQL feature. SQLite has no SET
// statement, so statements carrying variables fail there with
// ErrVarsUnsupported before reaching the database.
//
// # Statistics and Debugging
//
// StatsDriver counts statements, errors and slow statements, overall and
// per statement text. DebugDriver logs every statement through log/slog.
// Both wrap a Driver and satisfy dialect.Driver themselves.
//
// # Configuration
//
// Config describes a connection in YAML and OpenConfig assembles the
// matching (possibly wrapped) driver.
package sql
