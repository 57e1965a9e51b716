package sqlgen

import (
	"strings"

	"github.com/syssam/tablekit/dialect"
	"github.com/syssam/tablekit/schema"
)

// Option configures statement rendering.
type Option func(*config)

type config struct {
	dialect string
}

// Dialect sets the dialect statements are rendered for.
func Dialect(name string) Option {
	return func(c *config) {
		c.dialect = dialect.Normalize(name)
	}
}

func newConfig(opts []Option) *config {
	c := &config{dialect: dialect.Postgres}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// builder accumulates statement text and placeholder positions.
type builder[T any] struct {
	strings.Builder
	dialect  string
	bindings []schema.Column[T]
}

func newBuilder[T any](opts []Option) *builder[T] {
	return &builder[T]{dialect: newConfig(opts).dialect}
}

// table writes the quoted table reference.
func (b *builder[T]) table(ref schema.Ref) {
	b.WriteString(dialect.Table(b.dialect, ref.Schema, ref.Table))
}

// arg binds c and writes the placeholder for it.
func (b *builder[T]) arg(c schema.Column[T]) {
	b.bindings = append(b.bindings, c)
	b.WriteString(dialect.Placeholder(b.dialect, len(b.bindings)))
}

func (b *builder[T]) query(op Operation, card Cardinality) *Query[T] {
	return &Query[T]{
		Op:          op,
		Cardinality: card,
		sql:         b.String(),
		bindings:    b.bindings,
		dialect:     b.dialect,
	}
}

// projection writes "SELECT <columns> FROM <table>" with one column per line.
func projection[T, K any](b *builder[T], t *schema.Table[T, K]) {
	b.WriteString("SELECT\n  ")
	for i, c := range t.Columns() {
		if i > 0 {
			b.WriteString(",\n  ")
		}
		b.WriteString(c.SQL())
	}
	b.WriteString("\nFROM\n  ")
	b.table(t.Ref())
	b.WriteString("\n")
}

// Select compiles a statement fetching one row by primary key.
func Select[T, K any](t *schema.Table[T, K], opts ...Option) *Query[T] {
	return SelectBy(t, t.PrimaryKey(), opts...)
}

// SelectBy compiles a statement fetching the rows whose column c equals
// the bound value.
func SelectBy[T, K any](t *schema.Table[T, K], c schema.Column[T], opts ...Option) *Query[T] {
	b := newBuilder[T](opts)
	projection(b, t)
	b.WriteString("WHERE ")
	b.WriteString(c.SQL())
	b.WriteString(" = ")
	b.arg(c)
	return b.query(OpSelect, One)
}

// SelectAll compiles a statement fetching every row of the table.
func SelectAll[T, K any](t *schema.Table[T, K], opts ...Option) *Query[T] {
	b := newBuilder[T](opts)
	projection(b, t)
	return b.query(OpSelect, Many)
}

// Insert compiles a statement inserting one row with every column.
func Insert[T, K any](t *schema.Table[T, K], opts ...Option) *Query[T] {
	b := newBuilder[T](opts)
	insert(b, t)
	return b.query(OpInsert, One)
}

func insert[T, K any](b *builder[T], t *schema.Table[T, K]) {
	cols := t.Columns()
	b.WriteString("INSERT INTO ")
	b.table(t.Ref())
	b.WriteString("\n  (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.SQL())
	}
	b.WriteString(")\nVALUES\n  (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.arg(c)
	}
	b.WriteString(")")
}

// Update compiles a statement overwriting every column of the row
// identified by its primary key. The primary key is assigned too, with
// the same value it is matched on.
func Update[T, K any](t *schema.Table[T, K], opts ...Option) *Query[T] {
	b := newBuilder[T](opts)
	pk := t.PrimaryKey()
	b.WriteString("UPDATE ")
	b.table(t.Ref())
	b.WriteString(" SET\n  ")
	for i, c := range t.Columns() {
		if i > 0 {
			b.WriteString(",\n  ")
		}
		b.WriteString(c.SQL())
		b.WriteString(" = ")
		b.arg(c)
	}
	b.WriteString("\nWHERE\n  ")
	b.WriteString(pk.SQL())
	b.WriteString(" = ")
	if b.dialect == dialect.MySQL {
		// Positional "?" placeholders cannot be reused.
		b.arg(pk)
	} else {
		b.WriteString(dialect.Placeholder(b.dialect, 1))
	}
	return b.query(OpUpdate, One)
}

// Upsert compiles an insert that overwrites every non-key column when a
// row with the same primary key already exists.
func Upsert[T, K any](t *schema.Table[T, K], opts ...Option) *Query[T] {
	b := newBuilder[T](opts)
	insert(b, t)
	rest := t.NonKey(nil)
	if b.dialect == dialect.MySQL {
		b.WriteString("\nON DUPLICATE KEY UPDATE\n  ")
		if len(rest) == 0 {
			pk := t.PrimaryKey().SQL()
			b.WriteString(pk + " = " + pk)
		}
		for i, c := range rest {
			if i > 0 {
				b.WriteString(",\n  ")
			}
			b.WriteString(c.SQL() + " = VALUES(" + c.SQL() + ")")
		}
		return b.query(OpUpsert, One)
	}
	b.WriteString("\nON CONFLICT(")
	b.WriteString(t.PrimaryKey().SQL())
	if len(rest) == 0 {
		b.WriteString(")\nDO NOTHING")
		return b.query(OpUpsert, One)
	}
	b.WriteString(")\nDO UPDATE SET\n  ")
	for i, c := range rest {
		if i > 0 {
			b.WriteString(",\n  ")
		}
		b.WriteString(c.SQL() + " = EXCLUDED." + c.SQL())
	}
	return b.query(OpUpsert, One)
}

// Delete compiles a statement deleting one row by primary key.
func Delete[T, K any](t *schema.Table[T, K], opts ...Option) *Query[T] {
	return DeleteBy(t, t.PrimaryKey(), opts...)
}

// DeleteBy compiles a statement deleting the rows whose column c equals
// the bound value.
func DeleteBy[T, K any](t *schema.Table[T, K], c schema.Column[T], opts ...Option) *Query[T] {
	b := newBuilder[T](opts)
	b.WriteString("DELETE FROM ")
	b.table(t.Ref())
	b.WriteString(" WHERE ")
	b.WriteString(c.SQL())
	b.WriteString(" = ")
	b.arg(c)
	return b.query(OpDelete, One)
}
