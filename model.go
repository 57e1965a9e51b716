package tablekit

import (
	"context"
	"log/slog"
	"slices"

	"github.com/syssam/tablekit/dialect"
	"github.com/syssam/tablekit/dialect/sql/sqlgen"
	"github.com/syssam/tablekit/schema"
)

// Option configures a Model.
type Option func(*options)

type options struct {
	dialect string
	log     *slog.Logger
}

// WithDialect sets the dialect statements are compiled for.
// The default is dialect.Postgres.
func WithDialect(name string) Option {
	return func(o *options) {
		o.dialect = dialect.Normalize(name)
	}
}

// WithLogger sets the logger statements are traced to at debug level.
// The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// Model runs the data-access operations of entity type T, whose primary
// key has type K. A Model is immutable and safe for concurrent use; it
// holds the statements compiled from the table descriptor and the hooks
// registered for the entity.
type Model[T, K any] struct {
	table   *schema.Table[T, K]
	bind    func(*T, schema.Column[T], Bindable) error
	target  func(*T, schema.Column[T]) (any, error)
	hooks   []Hook[T, K]
	dialect string
	log     *slog.Logger
	stmts   statements[T]
}

// statements are compiled once per Model.
type statements[T any] struct {
	selectOne *sqlgen.Query[T]
	selectAll *sqlgen.Query[T]
	insert    *sqlgen.Query[T]
	update    *sqlgen.Query[T]
	upsert    *sqlgen.Query[T]
	delete    *sqlgen.Query[T]
}

// NewModel returns the Model of the entity described by t.
//
//	var Trees = tablekit.NewModel[Tree](TreeTable)
func NewModel[T, K any, PT Record[T]](t *schema.Table[T, K], opts ...Option) *Model[T, K] {
	o := &options{dialect: dialect.Postgres, log: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	d := sqlgen.Dialect(o.dialect)
	return &Model[T, K]{
		table:   t,
		bind:    func(v *T, c schema.Column[T], q Bindable) error { return PT(v).Bind(c, q) },
		target:  func(v *T, c schema.Column[T]) (any, error) { return PT(v).Target(c) },
		dialect: o.dialect,
		log:     o.log,
		stmts: statements[T]{
			selectOne: sqlgen.Select(t, d),
			selectAll: sqlgen.SelectAll(t, d),
			insert:    sqlgen.Insert(t, d),
			update:    sqlgen.Update(t, d),
			upsert:    sqlgen.Upsert(t, d),
			delete:    sqlgen.Delete(t, d),
		},
	}
}

// WithHooks returns a copy of m with hooks appended to its hook list.
// Hooks are meant to be registered once, when the Model is declared.
func (m *Model[T, K]) WithHooks(hooks ...Hook[T, K]) *Model[T, K] {
	c := *m
	c.hooks = append(slices.Clip(m.hooks), hooks...)
	return &c
}

// Table returns the table descriptor.
func (m *Model[T, K]) Table() *schema.Table[T, K] { return m.table }

// Dialect returns the dialect statements are compiled for.
func (m *Model[T, K]) Dialect() string { return m.dialect }

// Hooks returns the registered hooks.
func (m *Model[T, K]) Hooks() []Hook[T, K] { return slices.Clone(m.hooks) }

// Compile options for statements built outside the Model.
func (m *Model[T, K]) compileOpt() sqlgen.Option { return sqlgen.Dialect(m.dialect) }

// Bind binds column c of v into q.
func (m *Model[T, K]) Bind(v *T, c schema.Column[T], q Bindable) error {
	return m.bind(v, c, q)
}

// BindAll binds every column of compiled statement q from v into dst.
func (m *Model[T, K]) BindAll(v *T, q *sqlgen.Query[T], dst Bindable) error {
	for _, c := range q.Bindings() {
		if err := m.bind(v, c, dst); err != nil {
			return err
		}
	}
	return nil
}

// Exec returns a pending side-effect statement for q.
func (m *Model[T, K]) Exec(q *sqlgen.Query[T]) *ExecQuery {
	return &ExecQuery{sql: q.SQL(), op: q.Op.String(), table: m.table.Ref().String()}
}

// Typed returns a pending row-mapping statement for q. The statement must
// project the table columns in canonical order, as compiled selects do.
func (m *Model[T, K]) Typed(q *sqlgen.Query[T]) *TypedQuery[T] {
	tq := m.Query(q.SQL())
	tq.op = q.Op.String()
	return tq
}

// Query returns a pending row-mapping statement for custom SQL text. Like
// compiled selects, the statement must project the table columns in
// canonical order.
func (m *Model[T, K]) Query(query string) *TypedQuery[T] {
	return &TypedQuery[T]{
		sql:     query,
		columns: m.table.Columns(),
		target:  m.target,
		op:      sqlgen.OpSelect.String(),
		table:   m.table.Ref().String(),
	}
}

func (m *Model[T, K]) run(ctx context.Context, stage Stage, q *sqlgen.Query[T], in *Input[T, K]) error {
	if len(m.hooks) == 0 {
		return nil
	}
	return RunHooks(ctx, m.hooks, stage, q, in)
}

func (m *Model[T, K]) trace(ctx context.Context, q *sqlgen.Query[T], args []any) {
	if !m.log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	m.log.DebugContext(ctx, "tablekit: statement",
		"op", q.Op.String(),
		"table", m.table.Ref().String(),
		"sql", q.SQL(),
		"args", args,
	)
}
