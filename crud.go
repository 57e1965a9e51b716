package tablekit

import (
	"context"

	"github.com/syssam/tablekit/dialect"
	"github.com/syssam/tablekit/dialect/sql/sqlgen"
	"github.com/syssam/tablekit/schema"
)

// Create inserts v.
func (m *Model[T, K]) Create(ctx context.Context, ex dialect.ExecQuerier, v *T) (dialect.Result, error) {
	return m.execRow(ctx, ex, m.stmts.insert, v)
}

// Read fetches the entity with primary key pk. It fails with an error
// satisfying IsNotFound when no row matches.
func (m *Model[T, K]) Read(ctx context.Context, ex dialect.ExecQuerier, pk K) (*T, error) {
	out, err := m.fetch(ctx, ex, m.stmts.selectOne, &Input[T, K]{Kind: InputPrimaryKey, PK: &pk}, bindValue(pk), OutcomeOne)
	if err != nil {
		return nil, err
	}
	return out.Row, nil
}

// Find fetches the entity with primary key pk, or returns nil when no row matches.
func (m *Model[T, K]) Find(ctx context.Context, ex dialect.ExecQuerier, pk K) (*T, error) {
	out, err := m.fetch(ctx, ex, m.stmts.selectOne, &Input[T, K]{Kind: InputPrimaryKey, PK: &pk}, bindValue(pk), OutcomeOptional)
	if err != nil {
		return nil, err
	}
	return out.Row, nil
}

// ReadAll fetches every entity of the table.
func (m *Model[T, K]) ReadAll(ctx context.Context, ex dialect.ExecQuerier) ([]*T, error) {
	out, err := m.fetch(ctx, ex, m.stmts.selectAll, &Input[T, K]{}, nil, OutcomeMany)
	if err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// Reload replaces v with the stored row sharing its primary key.
func (m *Model[T, K]) Reload(ctx context.Context, ex dialect.ExecQuerier, v *T) error {
	q := m.stmts.selectOne
	bind := func(dst Bindable) error { return m.BindAll(v, q, dst) }
	out, err := m.fetch(ctx, ex, q, &Input[T, K]{Kind: InputRow, Row: v}, bind, OutcomeOne)
	if err != nil {
		return err
	}
	*v = *out.Row
	return nil
}

// Update overwrites the stored row sharing v's primary key.
func (m *Model[T, K]) Update(ctx context.Context, ex dialect.ExecQuerier, v *T) (dialect.Result, error) {
	return m.execRow(ctx, ex, m.stmts.update, v)
}

// Upsert inserts v, or overwrites the stored row sharing its primary key.
func (m *Model[T, K]) Upsert(ctx context.Context, ex dialect.ExecQuerier, v *T) (dialect.Result, error) {
	return m.execRow(ctx, ex, m.stmts.upsert, v)
}

// Delete deletes the stored row sharing v's primary key.
func (m *Model[T, K]) Delete(ctx context.Context, ex dialect.ExecQuerier, v *T) (dialect.Result, error) {
	return m.execRow(ctx, ex, m.stmts.delete, v)
}

// DeleteByKey deletes the row with primary key pk.
func (m *Model[T, K]) DeleteByKey(ctx context.Context, ex dialect.ExecQuerier, pk K) (dialect.Result, error) {
	q := m.stmts.delete
	if err := m.run(ctx, PreBind, q, &Input[T, K]{Kind: InputPrimaryKey, PK: &pk}); err != nil {
		return nil, err
	}
	pending := m.Exec(q)
	pending.Bind(pk)
	return m.execPending(ctx, ex, q, pending)
}

// FindBy fetches the first entity whose column c equals value, or nil
// when none does. It is meant for columns carrying a unique constraint.
func (m *Model[T, K]) FindBy(ctx context.Context, ex dialect.ExecQuerier, c schema.Column[T], value any) (*T, error) {
	if !m.table.Has(c) {
		return nil, UnknownColumn(c.Field())
	}
	q := sqlgen.SelectBy(m.table, c, m.compileOpt())
	out, err := m.fetch(ctx, ex, q, &Input[T, K]{}, bindValue(value), OutcomeOptional)
	if err != nil {
		return nil, err
	}
	return out.Row, nil
}

// DeleteBy deletes the rows whose column c equals value.
func (m *Model[T, K]) DeleteBy(ctx context.Context, ex dialect.ExecQuerier, c schema.Column[T], value any) (dialect.Result, error) {
	if !m.table.Has(c) {
		return nil, UnknownColumn(c.Field())
	}
	q := sqlgen.DeleteBy(m.table, c, m.compileOpt())
	if err := m.run(ctx, PreBind, q, &Input[T, K]{}); err != nil {
		return nil, err
	}
	pending := m.Exec(q)
	pending.Bind(value)
	return m.execPending(ctx, ex, q, pending)
}

func bindValue[V any](v V) func(Bindable) error {
	return func(dst Bindable) error {
		dst.Bind(v)
		return nil
	}
}

// execRow runs a side-effect statement bound from v.
func (m *Model[T, K]) execRow(ctx context.Context, ex dialect.ExecQuerier, q *sqlgen.Query[T], v *T) (dialect.Result, error) {
	if err := m.run(ctx, PreBind, q, &Input[T, K]{Kind: InputRow, Row: v}); err != nil {
		return nil, err
	}
	pending := m.Exec(q)
	if err := m.BindAll(v, q, pending); err != nil {
		return nil, err
	}
	return m.execPending(ctx, ex, q, pending)
}

// execPending runs the PreExec hooks, the statement and the PostExec hooks.
// A PostExec failure takes precedence over the execution result.
func (m *Model[T, K]) execPending(ctx context.Context, ex dialect.ExecQuerier, q *sqlgen.Query[T], pending *ExecQuery) (dialect.Result, error) {
	if err := m.run(ctx, PreExec, q, &Input[T, K]{}); err != nil {
		return nil, err
	}
	m.trace(ctx, q, pending.args)
	res, err := pending.Exec(ctx, ex)
	out := &Outcome[T]{Kind: OutcomeExec, Exec: res, Err: err}
	if err := m.run(ctx, PostExec, q, &Input[T, K]{Kind: InputResult, Result: out}); err != nil {
		return nil, err
	}
	return res, err
}

// fetch runs a row-mapping statement through the hook pipeline.
func (m *Model[T, K]) fetch(ctx context.Context, ex dialect.ExecQuerier, q *sqlgen.Query[T], in *Input[T, K], bind func(Bindable) error, kind OutcomeKind) (*Outcome[T], error) {
	if err := m.run(ctx, PreBind, q, in); err != nil {
		return nil, err
	}
	pending := m.Typed(q)
	if bind != nil {
		if err := bind(pending); err != nil {
			return nil, err
		}
	}
	if err := m.run(ctx, PreExec, q, &Input[T, K]{}); err != nil {
		return nil, err
	}
	m.trace(ctx, q, pending.args)
	out := &Outcome[T]{Kind: kind}
	switch kind {
	case OutcomeOne:
		out.Row, out.Err = pending.One(ctx, ex)
	case OutcomeOptional:
		out.Row, out.Err = pending.Optional(ctx, ex)
	default:
		out.Rows, out.Err = pending.All(ctx, ex)
	}
	if err := m.run(ctx, PostExec, q, &Input[T, K]{Kind: InputResult, Result: out}); err != nil {
		return nil, err
	}
	return out, out.Err
}
