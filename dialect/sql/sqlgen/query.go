package sqlgen

import (
	"fmt"
	"slices"

	"github.com/syssam/tablekit/schema"
)

// Operation is the kind of statement a Query performs.
type Operation uint8

// Statement operations.
const (
	OpSelect Operation = iota + 1
	OpInsert
	OpUpdate
	OpUpsert
	OpDelete
	OpOther
)

// String implements fmt.Stringer.
func (o Operation) String() string {
	switch o {
	case OpSelect:
		return "select"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpUpsert:
		return "upsert"
	case OpDelete:
		return "delete"
	case OpOther:
		return "other"
	default:
		return fmt.Sprintf("Operation(%d)", o)
	}
}

// Cardinality is the number of rows a Query is expected to touch.
type Cardinality uint8

// Cardinalities.
const (
	None Cardinality = iota
	One
	Many
)

// String implements fmt.Stringer.
func (c Cardinality) String() string {
	switch c {
	case None:
		return "none"
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return fmt.Sprintf("Cardinality(%d)", c)
	}
}

// Query is a compiled statement for entity type T.
type Query[T any] struct {
	Op          Operation
	Cardinality Cardinality
	sql         string
	bindings    []schema.Column[T]
	dialect     string
}

// SQL returns the statement text.
func (q *Query[T]) SQL() string { return q.sql }

// Bindings returns the columns bound to the placeholders, in order.
func (q *Query[T]) Bindings() []schema.Column[T] { return slices.Clone(q.bindings) }

// Dialect returns the dialect the statement was rendered for.
func (q *Query[T]) Dialect() string { return q.dialect }

// String implements fmt.Stringer.
func (q *Query[T]) String() string { return q.sql }
