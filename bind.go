package tablekit

import (
	"github.com/syssam/tablekit/dialect/sql/sqlgen"
	"github.com/syssam/tablekit/schema"
)

// Bindable is a pending statement that accepts positional values.
// Each call to Bind attaches the value for the next placeholder.
type Bindable interface {
	Bind(v any)
}

// Binder attaches the value of one column of an entity to a pending
// statement. Implementations return an error wrapping ErrUnknownColumn
// for columns outside the entity's table.
type Binder[T any] interface {
	Bind(c schema.Column[T], q Bindable) error
}

// Record is the constraint satisfied by entity pointer types. Besides
// binding, a record exposes a scan destination for every column.
//
//	func (t *Tree) Bind(c schema.Column[Tree], q tablekit.Bindable) error {
//	    switch c.Field() {
//	    case "ID":
//	        q.Bind(t.ID)
//	    case "Name":
//	        q.Bind(t.Name)
//	    default:
//	        return tablekit.UnknownColumn(c.Field())
//	    }
//	    return nil
//	}
type Record[T any] interface {
	*T
	Binder[T]
	// Target returns a pointer to the field backing column c.
	Target(c schema.Column[T]) (any, error)
}

// BindAll binds every column of q, in order, from b into dst.
// It stops at the first error.
func BindAll[T any](b Binder[T], q *sqlgen.Query[T], dst Bindable) error {
	for _, c := range q.Bindings() {
		if err := b.Bind(c, dst); err != nil {
			return err
		}
	}
	return nil
}

// Args collects bound values in order. It is the simplest Bindable.
type Args []any

// Bind implements Bindable.
func (a *Args) Bind(v any) {
	*a = append(*a, v)
}

var (
	_ Bindable = (*Args)(nil)
	_ Bindable = (*ExecQuery)(nil)
	_ Bindable = (*TypedQuery[struct{}])(nil)
	_ Bindable = (*Builder)(nil)
)
