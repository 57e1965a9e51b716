// Package sqlgen compiles table descriptors into parameterized SQL statements.
//
// Every function is pure: it takes a descriptor (and, for the *By variants, a
// filter column) and returns a Query holding the statement text and the
// ordered list of columns whose values fill the positional placeholders.
//
//	q := sqlgen.Select(TreeTable)
//	q.SQL()      // SELECT\n  id,\n  forest_id,\n  name\nFROM\n  "public"."tree"\nWHERE id = $1
//	q.Bindings() // [TreeID]
//
// Postgres is the default dialect. Pass Dialect(dialect.SQLite) or
// Dialect(dialect.MySQL) to render for another backend.
package sqlgen
