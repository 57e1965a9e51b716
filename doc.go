// Package tablekit is a typed data-access layer built on table descriptors.
//
// A descriptor declares the columns of an entity table and their roles
// (primary key, foreign key, data or timestamp). Statements are compiled
// from descriptors once, by package sqlgen, and executed by a Model:
//
//	var ForestTable = schema.MustTable("public", "forest",
//		func(f *Forest) int64 { return f.ID },
//		schema.PrimaryKey[Forest]("ID", "id"),
//		schema.Data[Forest]("Name", "name"),
//	)
//
//	var Forests = tablekit.NewModel[Forest](ForestTable)
//
//	f, err := Forests.Read(ctx, drv, 1)
//	if tablekit.IsNotFound(err) {
//		// ...
//	}
//
// Entities implement Record: Bind attaches the value of a column to a
// pending statement and Target returns the scan destination of a column.
// Both are usually generated by cmd/tablegen.
//
// Hooks run at three stages of every operation: PreBind, PreExec and
// PostExec. Relations resolve parents and children through foreign keys.
// Execution failures are returned as *QueryError values classified by
// Kind, SQL class and constraint violation.
package tablekit
