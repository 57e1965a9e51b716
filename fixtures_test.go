package tablekit_test

import (
	"strings"
	"testing"

	"github.com/syssam/tablekit"
	"github.com/syssam/tablekit/dialect"
	tksql "github.com/syssam/tablekit/dialect/sql"
	"github.com/syssam/tablekit/schema"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

type Forest struct {
	ID   int64
	Name string
}

type Tree struct {
	ID       int64
	ForestID int64
	Species  string
	Height   int64
}

var (
	forestID    = schema.PrimaryKey[Forest]("ID", "id")
	forestName  = schema.Data[Forest]("Name", "name")
	forestTable = schema.MustTable("public", "forest", func(f *Forest) int64 { return f.ID },
		forestID, forestName,
	)

	treeID       = schema.PrimaryKey[Tree]("ID", "id")
	treeForestID = schema.References[Tree]("ForestID", "forest_id", forestTable)
	treeSpecies  = schema.Data[Tree]("Species", "species")
	treeHeight   = schema.Data[Tree]("Height", "height")
	treeTable    = schema.MustTable("public", "tree", func(t *Tree) int64 { return t.ID },
		treeID, treeForestID, treeSpecies, treeHeight,
	)
)

func (f *Forest) Bind(c schema.Column[Forest], q tablekit.Bindable) error {
	switch c.Field() {
	case "ID":
		q.Bind(f.ID)
	case "Name":
		q.Bind(f.Name)
	default:
		return tablekit.UnknownColumn(c.Field())
	}
	return nil
}

func (f *Forest) Target(c schema.Column[Forest]) (any, error) {
	switch c.Field() {
	case "ID":
		return &f.ID, nil
	case "Name":
		return &f.Name, nil
	default:
		return nil, tablekit.UnknownColumn(c.Field())
	}
}

func (t *Tree) Bind(c schema.Column[Tree], q tablekit.Bindable) error {
	switch c.Field() {
	case "ID":
		q.Bind(t.ID)
	case "ForestID":
		q.Bind(t.ForestID)
	case "Species":
		q.Bind(t.Species)
	case "Height":
		q.Bind(t.Height)
	default:
		return tablekit.UnknownColumn(c.Field())
	}
	return nil
}

func (t *Tree) Target(c schema.Column[Tree]) (any, error) {
	switch c.Field() {
	case "ID":
		return &t.ID, nil
	case "ForestID":
		return &t.ForestID, nil
	case "Species":
		return &t.Species, nil
	case "Height":
		return &t.Height, nil
	default:
		return nil, tablekit.UnknownColumn(c.Field())
	}
}

const (
	forestSelect = "SELECT\n  id,\n  name\nFROM\n  \"public\".\"forest\"\nWHERE id = $1"
	forestAll    = "SELECT\n  id,\n  name\nFROM\n  \"public\".\"forest\"\n"
	forestInsert = "INSERT INTO \"public\".\"forest\"\n  (id, name)\nVALUES\n  ($1, $2)"
	forestUpdate = "UPDATE \"public\".\"forest\" SET\n  id = $1,\n  name = $2\nWHERE\n  id = $1"
	forestUpsert = forestInsert + "\nON CONFLICT(id)\nDO UPDATE SET\n  name = EXCLUDED.name"
	forestDelete = "DELETE FROM \"public\".\"forest\" WHERE id = $1"
)

// mockDriver returns a Postgres driver over sqlmock with exact query matching.
func mockDriver(t *testing.T) (*tksql.Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return tksql.OpenDB(dialect.Postgres, db), mock
}

// sqliteDriver returns a driver over a private in-memory SQLite database
// holding the forest and tree tables.
func sqliteDriver(t *testing.T) *tksql.Driver {
	t.Helper()
	drv, err := tksql.Open(dialect.SQLite, "file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { drv.Close() })
	ctx := t.Context()
	for _, stmt := range []string{
		`CREATE TABLE forest (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)`,
		`CREATE TABLE tree (
			id INTEGER PRIMARY KEY,
			forest_id INTEGER NOT NULL REFERENCES forest(id),
			species TEXT NOT NULL,
			height INTEGER NOT NULL CHECK (height >= 0)
		)`,
	} {
		_, err := drv.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	return drv
}
