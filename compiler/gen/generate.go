package gen

import (
	"context"
	"fmt"
	"go/token"
	pathpkg "path"
	"path/filepath"
	"runtime"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/tablekit/compiler/load"
	"github.com/syssam/tablekit/dialect"
)

// File is a generated source file, named relative to the target directory.
type File struct {
	Name string
	*jen.File
}

// Generator renders the entities of a description.
type Generator struct {
	cfg      Config
	desc     *load.Description
	entities []*entity
	byName   map[string]*entity
}

// entity carries the generated identifiers of a described entity.
type entity struct {
	*load.Entity
	key   *load.Field
	table string // schema.Table variable
	model string // tablekit.Model variable
	file  string
}

func (e *entity) column(f *load.Field) string { return e.Name + f.Name + "Column" }

// NewGenerator validates the configuration against the description and
// resolves the names of every generated declaration.
func NewGenerator(d *load.Description, opts ...Option) (*Generator, error) {
	d.Complete()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{desc: d, byName: make(map[string]*entity, len(d.Entities))}
	if err := g.cfg.Apply(opts...); err != nil {
		return nil, err
	}
	if g.cfg.Target == "" {
		return nil, NewConfigError("Target", nil, "missing target directory in config")
	}
	if g.cfg.Package == "" {
		g.cfg.Package = d.Package
	}
	if g.cfg.Package == "" {
		g.cfg.Package = filepath.Base(g.cfg.Target)
	}
	if !token.IsIdentifier(g.cfg.Package) {
		return nil, NewConfigError("Package", g.cfg.Package, "package must be a valid identifier")
	}
	if g.cfg.Dialect == "" && d.Dialect != "" {
		g.cfg.Dialect = dialect.Normalize(d.Dialect)
	}
	if g.cfg.Header == "" {
		g.cfg.Header = DefaultHeader
	}
	if g.cfg.Workers == 0 {
		g.cfg.Workers = runtime.GOMAXPROCS(0)
	}
	for _, e := range d.Entities {
		model := load.Plural(e.Name)
		if model == e.Name {
			model += "Model"
		}
		ent := &entity{
			Entity: e,
			key:    e.PrimaryKey(),
			table:  e.Name + "Table",
			model:  model,
			file:   load.Snake(e.Name) + ".go",
		}
		g.entities = append(g.entities, ent)
		g.byName[e.Name] = ent
	}
	if err := g.checkNames(); err != nil {
		return nil, err
	}
	return g, nil
}

// Config returns the effective configuration.
func (g *Generator) Config() Config { return g.cfg }

// checkNames reports generated identifiers declared twice in the package.
func (g *Generator) checkNames() error {
	seen := make(map[string]string)
	declare := func(name, owner string) error {
		if other, ok := seen[name]; ok {
			return NewGenerationError("names", "", fmt.Sprintf("%s of %s collides with %s", name, owner, other), nil)
		}
		seen[name] = owner
		return nil
	}
	files := make(map[string]string)
	for _, e := range g.entities {
		if other, ok := files[e.file]; ok {
			return NewGenerationError("names", e.file, fmt.Sprintf("entities %s and %s share a file", other, e.Name), nil)
		}
		files[e.file] = e.Name
		names := []string{e.Name, e.table, e.model}
		for _, f := range e.Fields {
			names = append(names, e.column(f))
		}
		for _, r := range g.relations(e) {
			names = append(names, r.name)
		}
		for _, n := range names {
			if err := declare(n, e.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Files renders every entity file.
func (g *Generator) Files() ([]*File, error) {
	files := make([]*File, 0, len(g.entities))
	for _, e := range g.entities {
		f, err := g.genEntity(e)
		if err != nil {
			return nil, NewGenerationError("render", e.file, "", err)
		}
		files = append(files, &File{Name: e.file, File: f})
	}
	return files, nil
}

// Generate renders and writes every entity file to the target directory.
func (g *Generator) Generate(ctx context.Context) (*WriterMetrics, error) {
	files, err := g.Files()
	if err != nil {
		return nil, err
	}
	w := NewWriter(g.cfg.Target).WithWorkers(g.cfg.Workers)
	if err := w.WriteAll(ctx, files); err != nil {
		return nil, err
	}
	return w.Metrics(), nil
}

// Generate is the convenience function generating the entities of d.
func Generate(ctx context.Context, d *load.Description, opts ...Option) error {
	g, err := NewGenerator(d, opts...)
	if err != nil {
		return err
	}
	_, err = g.Generate(ctx)
	return err
}

func (g *Generator) newFile() *jen.File {
	f := jen.NewFile(g.cfg.Package)
	f.HeaderComment(g.cfg.Header)
	f.ImportNames(map[string]string{
		tablekitPkg: "tablekit",
		schemaPkg:   "schema",
		codecPkg:    "codec",
		dialectPkg:  "dialect",
	})
	for _, imports := range []map[string]string{load.DefaultImports, g.desc.Imports} {
		for name, path := range imports {
			if pathpkg.Base(path) == name {
				f.ImportName(path, name)
			} else {
				f.ImportAlias(path, name)
			}
		}
	}
	return f
}
