package tablekit

import (
	"context"
	"database/sql"
	"strings"

	"github.com/syssam/tablekit/dialect"
	"github.com/syssam/tablekit/schema"
)

// ExecQuery is a pending statement executed for its side effects.
type ExecQuery struct {
	sql   string
	args  []any
	op    string
	table string
}

// NewExec returns a pending statement for the given SQL text.
func NewExec(query string) *ExecQuery {
	return &ExecQuery{sql: query, op: "exec"}
}

// Bind implements Bindable.
func (q *ExecQuery) Bind(v any) { q.args = append(q.args, v) }

// SQL returns the statement text.
func (q *ExecQuery) SQL() string { return q.sql }

// Args returns the bound values.
func (q *ExecQuery) Args() []any { return q.args }

// Exec runs the statement. Failures are classified.
func (q *ExecQuery) Exec(ctx context.Context, ex dialect.ExecQuerier) (dialect.Result, error) {
	res, err := ex.Exec(ctx, q.sql, q.args...)
	if err != nil {
		return nil, wrapErr(err, q.op, q.table)
	}
	return res, nil
}

// TypedQuery is a pending statement whose rows are mapped onto T.
// The statement must project exactly the given columns, in order.
type TypedQuery[T any] struct {
	sql     string
	args    []any
	columns []schema.Column[T]
	target  func(*T, schema.Column[T]) (any, error)
	op      string
	table   string
}

// NewTyped returns a pending row-mapping statement.
func NewTyped[T any, PT Record[T]](query string, columns []schema.Column[T]) *TypedQuery[T] {
	return &TypedQuery[T]{
		sql:     query,
		columns: columns,
		target:  func(v *T, c schema.Column[T]) (any, error) { return PT(v).Target(c) },
		op:      "query",
	}
}

// Bind implements Bindable.
func (q *TypedQuery[T]) Bind(v any) { q.args = append(q.args, v) }

// SQL returns the statement text.
func (q *TypedQuery[T]) SQL() string { return q.sql }

// Args returns the bound values.
func (q *TypedQuery[T]) Args() []any { return q.args }

// One returns the first row. It fails with a KindNotFound error when the
// statement returns no rows.
func (q *TypedQuery[T]) One(ctx context.Context, ex dialect.ExecQuerier) (*T, error) {
	v, err := q.Optional(ctx, ex)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, wrapErr(sql.ErrNoRows, q.op, q.table)
	}
	return v, nil
}

// Optional returns the first row, or nil when there is none.
func (q *TypedQuery[T]) Optional(ctx context.Context, ex dialect.ExecQuerier) (*T, error) {
	var found *T
	err := q.each(ctx, ex, func(v *T) bool {
		found = v
		return false
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// All returns every row.
func (q *TypedQuery[T]) All(ctx context.Context, ex dialect.ExecQuerier) ([]*T, error) {
	var all []*T
	err := q.each(ctx, ex, func(v *T) bool {
		all = append(all, v)
		return true
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// Each streams rows to fn until the rows are exhausted or fn fails.
// The error of fn is returned as is.
func (q *TypedQuery[T]) Each(ctx context.Context, ex dialect.ExecQuerier, fn func(*T) error) error {
	var ferr error
	err := q.each(ctx, ex, func(v *T) bool {
		ferr = fn(v)
		return ferr == nil
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func (q *TypedQuery[T]) each(ctx context.Context, ex dialect.ExecQuerier, fn func(*T) bool) (rerr error) {
	rows, err := ex.Query(ctx, q.sql, q.args...)
	if err != nil {
		return wrapErr(err, q.op, q.table)
	}
	defer func() {
		if err := rows.Close(); err != nil && rerr == nil {
			rerr = wrapErr(err, q.op, q.table)
		}
	}()
	for rows.Next() {
		v, err := q.scan(rows)
		if err != nil {
			return err
		}
		if !fn(v) {
			return nil
		}
	}
	return wrapErr(rows.Err(), q.op, q.table)
}

func (q *TypedQuery[T]) scan(rows dialect.Rows) (*T, error) {
	v := new(T)
	dest := make([]any, len(q.columns))
	for i, c := range q.columns {
		d, err := q.target(v, c)
		if err != nil {
			return nil, err
		}
		dest[i] = d
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, wrapErr(err, q.op, q.table)
	}
	return v, nil
}

// Builder accumulates an ad-hoc statement. Binding a value writes the
// dialect's placeholder and records the value.
//
//	b := tablekit.NewBuilder(dialect.Postgres, "SELECT id FROM tree WHERE height > ")
//	b.PushBind(10).Push(" AND forest_id = ").PushBind(forestID)
type Builder struct {
	dialect string
	sb      strings.Builder
	args    []any
}

// NewBuilder returns a Builder starting with init.
func NewBuilder(d, init string) *Builder {
	b := &Builder{dialect: dialect.Normalize(d)}
	b.sb.WriteString(init)
	return b
}

// Push appends raw SQL text.
func (b *Builder) Push(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// PushBind appends a placeholder bound to v.
func (b *Builder) PushBind(v any) *Builder {
	b.args = append(b.args, v)
	b.sb.WriteString(dialect.Placeholder(b.dialect, len(b.args)))
	return b
}

// Bind implements Bindable.
func (b *Builder) Bind(v any) { b.PushBind(v) }

// SQL returns the accumulated statement text.
func (b *Builder) SQL() string { return b.sb.String() }

// Args returns the bound values.
func (b *Builder) Args() []any { return b.args }

// Exec runs the statement. Failures are classified.
func (b *Builder) Exec(ctx context.Context, ex dialect.ExecQuerier) (dialect.Result, error) {
	res, err := ex.Exec(ctx, b.SQL(), b.args...)
	if err != nil {
		return nil, wrapErr(err, "exec", "")
	}
	return res, nil
}

// Query runs the statement and returns the open cursor. The caller must
// close it.
func (b *Builder) Query(ctx context.Context, ex dialect.ExecQuerier) (dialect.Rows, error) {
	rows, err := ex.Query(ctx, b.SQL(), b.args...)
	if err != nil {
		return nil, wrapErr(err, "query", "")
	}
	return rows, nil
}
