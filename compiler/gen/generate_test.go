package gen

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tablekit/compiler/load"
)

func forestDescription(t *testing.T) *load.Description {
	t.Helper()
	d, err := load.Load("testdata/forest.yaml")
	require.NoError(t, err)
	return d
}

func parse(t *testing.T, doc string) *load.Description {
	t.Helper()
	d, err := load.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return d
}

func render(t *testing.T, g *Generator, name string) string {
	t.Helper()
	files, err := g.Files()
	require.NoError(t, err)
	for _, f := range files {
		if f.Name == name {
			return f.GoString()
		}
	}
	t.Fatalf("file %s not generated", name)
	return ""
}

func TestNewGenerator(t *testing.T) {
	t.Run("defaults from description", func(t *testing.T) {
		g, err := NewGenerator(forestDescription(t), WithTarget(t.TempDir()))
		require.NoError(t, err)
		c := g.Config()
		assert.Equal(t, "forest", c.Package)
		assert.Equal(t, "postgres", c.Dialect)
		assert.Equal(t, DefaultHeader, c.Header)
		assert.Positive(t, c.Workers)
	})

	t.Run("options override description", func(t *testing.T) {
		g, err := NewGenerator(forestDescription(t),
			WithTarget(t.TempDir()),
			WithPackage("store"),
			WithDialect("sqlite3"),
			WithWorkers(1),
		)
		require.NoError(t, err)
		c := g.Config()
		assert.Equal(t, "store", c.Package)
		assert.Equal(t, "sqlite", c.Dialect)
		assert.Equal(t, 1, c.Workers)
	})

	t.Run("package from target", func(t *testing.T) {
		d := parse(t, "entities:\n  - name: Tree\n    fields:\n      - {name: ID, type: int64, pk: true}\n")
		g, err := NewGenerator(d, WithTarget(filepath.Join(t.TempDir(), "orchard")))
		require.NoError(t, err)
		assert.Equal(t, "orchard", g.Config().Package)
		assert.Empty(t, g.Config().Dialect)
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := NewGenerator(forestDescription(t))
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
	})

	t.Run("invalid package from target", func(t *testing.T) {
		d := parse(t, "entities:\n  - name: Tree\n    fields:\n      - {name: ID, type: int64, pk: true}\n")
		_, err := NewGenerator(d, WithTarget(filepath.Join(t.TempDir(), "my-store")))
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
	})

	t.Run("invalid description", func(t *testing.T) {
		d := &load.Description{Entities: []*load.Entity{{Name: "Tree"}}}
		_, err := NewGenerator(d, WithTarget(t.TempDir()))
		require.Error(t, err)
		assert.True(t, load.IsSchemaError(err))
	})

	t.Run("completes in-code description", func(t *testing.T) {
		d := &load.Description{Entities: []*load.Entity{{
			Name:   "Tree",
			Fields: []*load.Field{{Name: "ID", Type: "int64", PK: true}},
		}}}
		_, err := NewGenerator(d, WithTarget(t.TempDir()))
		require.NoError(t, err)
		assert.Equal(t, "trees", d.Entities[0].Table)
		assert.Equal(t, "id", d.Entities[0].Fields[0].Column)
	})

	t.Run("colliding names", func(t *testing.T) {
		d := parse(t, "entities:\n"+
			"  - name: Tree\n    fields:\n      - {name: ID, type: int64, pk: true}\n"+
			"  - name: TreeTable\n    table: tree_table\n    fields:\n      - {name: ID, type: int64, pk: true}\n")
		_, err := NewGenerator(d, WithTarget(t.TempDir()))
		require.Error(t, err)
		assert.True(t, IsGenerationError(err))
		assert.Contains(t, err.Error(), "TreeTable")
	})
}

func TestGenerateEntity(t *testing.T) {
	g, err := NewGenerator(forestDescription(t), WithTarget(t.TempDir()))
	require.NoError(t, err)

	t.Run("forest", func(t *testing.T) {
		code := render(t, g, "forest.go")
		for _, want := range []string{
			"// Code generated by tablegen. DO NOT EDIT.",
			"package forest",
			"// Forest is a named woodland.",
			"type Forest struct {",
			`schema.PrimaryKey[Forest]("ID", "id")`,
			`schema.Data[Forest]("Tags", "tags")`,
			`schema.Timestamp[Forest](schema.Created, "CreatedAt", "created_at")`,
			"var ForestTable = schema.MustTable(",
			`"public",`,
			"func(e *Forest) int64 {",
			"return e.ID",
			"var Forests = tablekit.NewModel[Forest](ForestTable, tablekit.WithDialect(dialect.Postgres))",
			"func (e *Forest) Bind(c schema.Column[Forest], q tablekit.Bindable) error {",
			"q.Bind(codec.JSON(&e.Tags))",
			"q.Bind(e.Name)",
			"return tablekit.UnknownColumn(c.Field())",
			"func (e *Forest) Target(c schema.Column[Forest]) (any, error) {",
			"return codec.JSON(&e.Tags), nil",
			"return &e.CreatedAt, nil",
			"return nil, tablekit.UnknownColumn(c.Field())",
			`"github.com/syssam/tablekit/codec"`,
			`"time"`,
		} {
			assert.Contains(t, code, want)
		}
		assert.NotContains(t, code, "MustRelation")
		for _, alias := range []string{"tablekit", "schema", "codec", "dialect"} {
			assert.NotContains(t, code, alias+` "github.com/syssam/tablekit`, "import of %s is aliased", alias)
		}
	})

	t.Run("tree", func(t *testing.T) {
		code := render(t, g, "tree.go")
		for _, want := range []string{
			"// Tree is the entity stored in the public.trees table.",
			`schema.ForeignKey[Tree]("ForestID", "forest_id", schema.Ref{`,
			`schema.Data[Tree]("HeightMeters", "height")`,
			`schema.Timestamp[Tree](schema.Updated, "UpdatedAt", "updated_at")`,
			"UpdatedAt    *time.Time",
			"var Trees = tablekit.NewModel[Tree](TreeTable, tablekit.WithDialect(dialect.Postgres))",
			"var ForestTrees = tablekit.MustRelation(Trees, Forests, TreeForestIDColumn)",
		} {
			assert.Contains(t, code, want)
		}
		assert.NotContains(t, code, "codec")
	})
}

func TestGenerateRelations(t *testing.T) {
	d := parse(t, `
dialect: mysql
entities:
  - name: Node
    fields:
      - {name: ID, type: string, pk: true}
      - {name: ParentID, type: string, references: Node}
  - name: Edge
    fields:
      - {name: ID, type: int64, pk: true}
      - {name: FromID, type: string, references: Node}
      - {name: ToID, type: string, references: Node}
      - {name: Weight, type: "map[string]float64", codec: msgpack, tags: {json: weight}}
`)
	g, err := NewGenerator(d, WithTarget(t.TempDir()))
	require.NoError(t, err)

	node := render(t, g, "node.go")
	assert.Contains(t, node, `schema.ForeignKey[Node]("ParentID", "parent_id", schema.Ref{Table: "nodes"})`)
	assert.Contains(t, node, "var NodeNodes = tablekit.MustRelation(Nodes, Nodes, NodeParentIDColumn)")
	assert.Contains(t, node, "tablekit.WithDialect(dialect.MySQL)")

	edge := render(t, g, "edge.go")
	assert.Contains(t, edge, "var NodeEdgesByFromID = tablekit.MustRelation(Edges, Nodes, EdgeFromIDColumn)")
	assert.Contains(t, edge, "var NodeEdgesByToID = tablekit.MustRelation(Edges, Nodes, EdgeToIDColumn)")
	assert.Contains(t, edge, "q.Bind(codec.MsgPack(&e.Weight))")
	assert.Contains(t, edge, "map[string]float64 `json:\"weight\"`")
}

func TestTypeCode(t *testing.T) {
	d := &load.Description{Imports: map[string]string{"geo": "example.com/geo"}}
	g := &Generator{desc: d}
	tests := map[string]string{
		"int64":          "int64",
		"*string":        "*string",
		"[]byte":         "[]byte",
		"[16]byte":       "[16]byte",
		"map[string]any": "map[string]any",
		"interface{}":    "any",
		"*geo.Point":     "*geo.Point",
		"[]uuid.UUID":    "[]uuid.UUID",
	}
	for in, want := range tests {
		code, err := g.typeCode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, code.GoString(), in)
	}
	for _, in := range []string{"chan int", "func()", "a.b.C", "unknown.T"} {
		_, err := g.typeCode(in)
		assert.Error(t, err, in)
	}
}

func TestGenerate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "forest")
	g, err := NewGenerator(forestDescription(t), WithTarget(target), WithWorkers(2))
	require.NoError(t, err)
	metrics, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.FilesGenerated)
	assert.Positive(t, metrics.TotalBytes)

	for _, name := range []string{"forest.go", "tree.go"} {
		b, err := os.ReadFile(filepath.Join(target, name))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(b), "// Code generated by tablegen. DO NOT EDIT."), name)
	}

	require.NoError(t, Generate(context.Background(), forestDescription(t), WithTarget(target), WithHeader("Custom header.")))
	b, err := os.ReadFile(filepath.Join(target, "tree.go"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "// Custom header."))
}

func TestWriterErrors(t *testing.T) {
	t.Run("render", func(t *testing.T) {
		f := jen.NewFile("broken")
		f.Func().Id("(")
		w := NewWriter(t.TempDir())
		err := w.WriteAll(context.Background(), []*File{{Name: "broken.go", File: f}})
		require.Error(t, err)
		assert.True(t, IsGenerationError(err))
		assert.Equal(t, 0, w.Metrics().FilesGenerated)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f := jen.NewFile("ok")
		err := NewWriter(t.TempDir()).WithWorkers(1).WriteAll(ctx, []*File{{Name: "ok.go", File: f}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
