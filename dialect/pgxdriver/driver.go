// Package pgxdriver implements the dialect executor interfaces over a
// pgx connection pool.
//
//	drv, err := pgxdriver.Open(ctx, "postgres://localhost/forest")
//	if err != nil {
//		return err
//	}
//	defer drv.Close()
//	forest, err := Forests.Read(ctx, drv, 1)
package pgxdriver

import (
	"context"
	"fmt"

	"github.com/syssam/tablekit/dialect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// execQuerier is the subset of pgxpool.Pool and pgx.Tx used by the driver.
type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// pool is the seam around *pgxpool.Pool.
type pool interface {
	execQuerier
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Driver is a dialect.Driver backed by a pgx pool.
type Driver struct {
	conn
	pool pool
}

// Open creates a pool from a connection string and wraps it.
func Open(ctx context.Context, dsn string) (*Driver, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxdriver: open: %w", err)
	}
	return NewDriver(p), nil
}

// NewDriver wraps an existing pool. The driver owns the pool after the call.
func NewDriver(p *pgxpool.Pool) *Driver {
	return newDriver(p)
}

func newDriver(p pool) *Driver {
	return &Driver{conn: conn{p}, pool: p}
}

// Dialect implements the dialect.Driver interface.
func (*Driver) Dialect() string { return dialect.Postgres }

// Tx starts a transaction. Commit and Rollback use the context given here.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgxdriver: begin: %w", err)
	}
	return &Tx{conn: conn{tx}, ctx: ctx, tx: tx}, nil
}

// Close closes the pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

// Tx is a dialect.Tx backed by pgx.Tx.
type Tx struct {
	conn
	ctx context.Context
	tx  pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit(t.ctx) }

// Rollback aborts the transaction.
func (t *Tx) Rollback() error { return t.tx.Rollback(t.ctx) }

// Unwrap returns the underlying pgx transaction.
func (t *Tx) Unwrap() pgx.Tx { return t.tx }

type conn struct {
	ex execQuerier
}

// Exec implements the dialect.ExecQuerier interface.
func (c conn) Exec(ctx context.Context, query string, args ...any) (dialect.Result, error) {
	tag, err := c.ex.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgxdriver: exec: %w", err)
	}
	return result{tag}, nil
}

// Query implements the dialect.ExecQuerier interface.
func (c conn) Query(ctx context.Context, query string, args ...any) (dialect.Rows, error) {
	rs, err := c.ex.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgxdriver: query: %w", err)
	}
	return rows{rs}, nil
}

// result adapts a command tag to dialect.Result.
type result struct {
	tag pgconn.CommandTag
}

func (r result) RowsAffected() (int64, error) { return r.tag.RowsAffected(), nil }

// rows adapts pgx.Rows to dialect.Rows.
type rows struct {
	pgx.Rows
}

// Close releases the connection and reports any deferred error.
func (r rows) Close() error {
	r.Rows.Close()
	return r.Rows.Err()
}

var (
	_ dialect.Driver = (*Driver)(nil)
	_ dialect.Tx     = (*Tx)(nil)
	_ pool           = (*pgxpool.Pool)(nil)
	_ execQuerier    = (pgx.Tx)(nil)
)
