// Package schema describes entities as static table descriptors.
//
// A descriptor lists the columns of one table partitioned by role: exactly
// one primary key, any number of foreign keys, data columns and timestamp
// columns. Descriptors are built once, usually at package initialization
// by generated code, and are read-only afterwards.
//
//	var (
//	    TreeID       = schema.PrimaryKey[Tree]("ID", "id")
//	    TreeForestID = schema.References[Tree]("ForestID", "forest_id", ForestTable)
//	    TreeName     = schema.Data[Tree]("Name", "name")
//	)
//
//	var TreeTable = schema.MustTable("public", "tree",
//	    func(t *Tree) int64 { return t.ID },
//	    TreeID, TreeForestID, TreeName,
//	)
//
// The canonical column order used by every compiled statement is
// primary key, foreign keys, data columns, timestamp columns, each group in
// declaration order.
package schema
