package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidTable indicates a malformed table descriptor.
var ErrInvalidTable = errors.New("schema: invalid table")

// TableError describes why a descriptor was rejected.
type TableError struct {
	Table   string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *TableError) Error() string {
	var b strings.Builder
	b.WriteString("schema: table ")
	b.WriteString(e.Table)
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Is reports whether the target matches ErrInvalidTable.
func (e *TableError) Is(target error) bool {
	return target == ErrInvalidTable
}

// Table is the static descriptor of the table mapped by entity type T
// whose primary key value has type K.
type Table[T, K any] struct {
	schema     string
	name       string
	pk         Column[T]
	fks        []Column[T]
	data       []Column[T]
	timestamps []Column[T]
	key        func(*T) K
}

// NewTable builds a descriptor from columns in declaration order.
// key extracts the primary key value of an entity.
func NewTable[T, K any](schemaName, name string, key func(*T) K, columns ...Column[T]) (*Table[T, K], error) {
	t := &Table[T, K]{schema: schemaName, name: name, key: key}
	fail := func(field, format string, args ...any) error {
		return &TableError{Table: t.Ref().String(), Field: field, Message: fmt.Sprintf(format, args...)}
	}
	if name == "" {
		return nil, fail("", "empty table name")
	}
	if key == nil {
		return nil, fail("", "missing primary key accessor")
	}
	var (
		fields = make(map[string]struct{}, len(columns))
		names  = make(map[string]struct{}, len(columns))
	)
	for _, c := range columns {
		switch {
		case c.field == "":
			return nil, fail("", "column %q has an empty field name", c.sql)
		case c.sql == "":
			return nil, fail(c.field, "empty column name")
		}
		if _, ok := fields[c.field]; ok {
			return nil, fail(c.field, "duplicate field")
		}
		if _, ok := names[c.sql]; ok {
			return nil, fail(c.field, "duplicate column %q", c.sql)
		}
		fields[c.field], names[c.sql] = struct{}{}, struct{}{}
		switch c.role {
		case RolePrimaryKey:
			if !t.pk.IsZero() {
				return nil, fail(c.field, "second primary key (first is %q)", t.pk.field)
			}
			t.pk = c
		case RoleForeignKey:
			if c.ref.Table == "" {
				return nil, fail(c.field, "foreign key without a referenced table")
			}
			t.fks = append(t.fks, c)
		case RoleData:
			t.data = append(t.data, c)
		case RoleTimestamp:
			if c.kind < Created || c.kind > Deleted {
				return nil, fail(c.field, "invalid timestamp kind %d", c.kind)
			}
			t.timestamps = append(t.timestamps, c)
		default:
			return nil, fail(c.field, "unknown column role %d", c.role)
		}
	}
	if t.pk.IsZero() {
		return nil, fail("", "missing primary key")
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. It is intended for
// package level descriptor variables.
func MustTable[T, K any](schemaName, name string, key func(*T) K, columns ...Column[T]) *Table[T, K] {
	t, err := NewTable(schemaName, name, key, columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Schema returns the schema (namespace) name.
func (t *Table[T, K]) Schema() string { return t.schema }

// Name returns the table name.
func (t *Table[T, K]) Name() string { return t.name }

// Ref returns the table reference.
func (t *Table[T, K]) Ref() Ref { return Ref{Schema: t.schema, Table: t.name} }

// PrimaryKey returns the primary key column.
func (t *Table[T, K]) PrimaryKey() Column[T] { return t.pk }

// ForeignKeys returns the foreign key columns.
func (t *Table[T, K]) ForeignKeys() []Column[T] { return slices.Clone(t.fks) }

// DataColumns returns the data columns.
func (t *Table[T, K]) DataColumns() []Column[T] { return slices.Clone(t.data) }

// TimestampColumns returns the timestamp columns.
func (t *Table[T, K]) TimestampColumns() []Column[T] { return slices.Clone(t.timestamps) }

// Columns returns all columns in canonical order.
func (t *Table[T, K]) Columns() []Column[T] {
	cols := make([]Column[T], 1, 1+len(t.fks)+len(t.data)+len(t.timestamps))
	cols[0] = t.pk
	return t.NonKey(cols)
}

// NonKey appends every column except the primary key, in canonical order, to dst.
func (t *Table[T, K]) NonKey(dst []Column[T]) []Column[T] {
	dst = append(dst, t.fks...)
	dst = append(dst, t.data...)
	return append(dst, t.timestamps...)
}

// Column looks up a column by its field name.
func (t *Table[T, K]) Column(field string) (Column[T], bool) {
	if t.pk.field == field {
		return t.pk, true
	}
	for _, cols := range [][]Column[T]{t.fks, t.data, t.timestamps} {
		for _, c := range cols {
			if c.field == field {
				return c, true
			}
		}
	}
	return Column[T]{}, false
}

// Has reports whether c belongs to the table.
func (t *Table[T, K]) Has(c Column[T]) bool {
	found, ok := t.Column(c.field)
	return ok && found == c
}

// Timestamp returns the first timestamp column of the given kind.
func (t *Table[T, K]) Timestamp(kind TimestampKind) (Column[T], bool) {
	for _, c := range t.timestamps {
		if c.kind == kind {
			return c, true
		}
	}
	return Column[T]{}, false
}

// PK returns the primary key value of v.
func (t *Table[T, K]) PK(v *T) K { return t.key(v) }
