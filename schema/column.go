package schema

import "fmt"

// Role is the part a column plays in its table.
type Role uint8

// Column roles.
const (
	RolePrimaryKey Role = iota + 1
	RoleForeignKey
	RoleData
	RoleTimestamp
)

// String implements fmt.Stringer.
func (r Role) String() string {
	switch r {
	case RolePrimaryKey:
		return "primary key"
	case RoleForeignKey:
		return "foreign key"
	case RoleData:
		return "data"
	case RoleTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("Role(%d)", r)
	}
}

// TimestampKind qualifies timestamp columns.
type TimestampKind uint8

// Timestamp kinds.
const (
	Created TimestampKind = iota + 1
	Updated
	Deleted
)

// String implements fmt.Stringer.
func (k TimestampKind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("TimestampKind(%d)", k)
	}
}

// ParseTimestampKind parses the textual form of a TimestampKind.
func ParseTimestampKind(s string) (TimestampKind, error) {
	switch s {
	case "created":
		return Created, nil
	case "updated":
		return Updated, nil
	case "deleted":
		return Deleted, nil
	}
	return 0, fmt.Errorf("schema: unknown timestamp kind %q", s)
}

// Ref identifies a table.
type Ref struct {
	Schema string
	Table  string
}

// String implements fmt.Stringer.
func (r Ref) String() string {
	if r.Schema == "" {
		return r.Table
	}
	return r.Schema + "." + r.Table
}

// Column describes a single column of the table mapped by entity type T.
// Columns are comparable values; two descriptors are equal when all of
// their attributes are.
type Column[T any] struct {
	field string
	sql   string
	role  Role
	kind  TimestampKind
	ref   Ref
}

// PrimaryKey declares the primary key column of T.
func PrimaryKey[T any](field, sql string) Column[T] {
	return Column[T]{field: field, sql: sql, role: RolePrimaryKey}
}

// ForeignKey declares a foreign key column of T pointing at the given table.
func ForeignKey[T any](field, sql string, ref Ref) Column[T] {
	return Column[T]{field: field, sql: sql, role: RoleForeignKey, ref: ref}
}

// References declares a foreign key column of T pointing at parent.
func References[T, P, K any](field, sql string, parent *Table[P, K]) Column[T] {
	return ForeignKey[T](field, sql, parent.Ref())
}

// Data declares a plain data column of T.
func Data[T any](field, sql string) Column[T] {
	return Column[T]{field: field, sql: sql, role: RoleData}
}

// Timestamp declares a timestamp column of T.
func Timestamp[T any](kind TimestampKind, field, sql string) Column[T] {
	return Column[T]{field: field, sql: sql, role: RoleTimestamp, kind: kind}
}

// Field returns the entity-side field name.
func (c Column[T]) Field() string { return c.field }

// SQL returns the column name in the database.
func (c Column[T]) SQL() string { return c.sql }

// Role returns the column role.
func (c Column[T]) Role() Role { return c.role }

// Kind returns the timestamp kind. It is zero for non-timestamp columns.
func (c Column[T]) Kind() TimestampKind { return c.kind }

// References returns the referenced table of a foreign key column.
func (c Column[T]) References() (Ref, bool) {
	return c.ref, c.role == RoleForeignKey
}

// IsZero reports whether c is the zero Column.
func (c Column[T]) IsZero() bool { return c == Column[T]{} }

// String implements fmt.Stringer.
func (c Column[T]) String() string {
	return fmt.Sprintf("%s(%s)", c.field, c.sql)
}
