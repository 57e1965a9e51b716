package gen

import (
	"fmt"

	"github.com/dave/jennifer/jen"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/tablekit/compiler/load"
	"github.com/syssam/tablekit/dialect"
	"github.com/syssam/tablekit/schema"
)

const (
	tablekitPkg = "github.com/syssam/tablekit"
	schemaPkg   = tablekitPkg + "/schema"
	codecPkg    = tablekitPkg + "/codec"
	dialectPkg  = tablekitPkg + "/dialect"
)

var (
	dialectConsts = map[string]string{
		dialect.Postgres: "Postgres",
		dialect.MySQL:    "MySQL",
		dialect.SQLite:   "SQLite",
	}

	codecFuncs = map[string]string{
		load.CodecJSON:    "JSON",
		load.CodecMsgPack: "MsgPack",
	}

	multiline = jen.Options{Open: "(", Close: ")", Separator: ",", Multi: true}
)

// relation is a foreign key of an entity with its generated variable.
type relation struct {
	name   string
	fk     *load.Field
	parent *entity
}

func (g *Generator) relations(e *entity) []relation {
	fks := e.ForeignKeys()
	count := make(map[string]int, len(fks))
	for _, fk := range fks {
		count[fk.References]++
	}
	rels := make([]relation, 0, len(fks))
	for _, fk := range fks {
		parent := g.byName[fk.References]
		name := parent.Name + load.Plural(e.Name)
		if count[fk.References] > 1 {
			name += "By" + fk.Name
		}
		rels = append(rels, relation{name: name, fk: fk, parent: parent})
	}
	return rels
}

// genEntity generates the entity file ({entity}.go).
func (g *Generator) genEntity(e *entity) (*jen.File, error) {
	f := g.newFile()
	if err := g.genStruct(f, e); err != nil {
		return nil, err
	}
	g.genColumns(f, e)
	keyType, err := g.typeCode(e.key.Type)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", e.key.Name, err)
	}
	g.genTable(f, e, keyType)
	g.genModel(f, e)
	g.genBind(f, e)
	g.genTarget(f, e)
	g.genRelations(f, e)
	return f, nil
}

func (g *Generator) genStruct(f *jen.File, e *entity) error {
	f.Line()
	if e.Comment != "" {
		f.Comment(e.Comment)
	} else {
		f.Commentf("%s is the entity stored in the %s table.", e.Name, schema.Ref{Schema: e.Schema, Table: e.Table})
	}
	var err error
	f.Type().Id(e.Name).StructFunc(func(grp *jen.Group) {
		for _, fd := range e.Fields {
			typ, terr := g.typeCode(fd.Type)
			if terr != nil {
				err = fmt.Errorf("field %s: %w", fd.Name, terr)
				return
			}
			if fd.Comment != "" {
				grp.Comment(fd.Comment)
			}
			st := grp.Id(fd.Name).Add(typ)
			if len(fd.Tags) > 0 {
				st.Tag(fd.Tags)
			}
		}
	})
	return err
}

func (g *Generator) genColumns(f *jen.File, e *entity) {
	f.Line()
	f.Commentf("Columns of the %s entity.", e.Name)
	f.Var().DefsFunc(func(grp *jen.Group) {
		for _, fd := range e.Fields {
			grp.Id(e.column(fd)).Op("=").Add(g.columnCtor(e, fd))
		}
	})
}

func (g *Generator) columnCtor(e *entity, fd *load.Field) jen.Code {
	name, sql := jen.Lit(fd.Name), jen.Lit(fd.Column)
	switch fd.Role() {
	case schema.RolePrimaryKey:
		return jen.Qual(schemaPkg, "PrimaryKey").Types(jen.Id(e.Name)).Call(name, sql)
	case schema.RoleForeignKey:
		// Referencing the parent table variable would form an
		// initialization cycle on self references.
		parent := g.byName[fd.References]
		ref := jen.Dict{jen.Id("Table"): jen.Lit(parent.Table)}
		if parent.Schema != "" {
			ref[jen.Id("Schema")] = jen.Lit(parent.Schema)
		}
		return jen.Qual(schemaPkg, "ForeignKey").Types(jen.Id(e.Name)).Call(name, sql, jen.Qual(schemaPkg, "Ref").Values(ref))
	case schema.RoleTimestamp:
		return jen.Qual(schemaPkg, "Timestamp").Types(jen.Id(e.Name)).Call(jen.Qual(schemaPkg, cases.Title(language.English).String(fd.Timestamp)), name, sql)
	default:
		return jen.Qual(schemaPkg, "Data").Types(jen.Id(e.Name)).Call(name, sql)
	}
}

func (g *Generator) genTable(f *jen.File, e *entity, keyType jen.Code) {
	args := []jen.Code{
		jen.Lit(e.Schema),
		jen.Lit(e.Table),
		jen.Func().Params(jen.Id("e").Op("*").Id(e.Name)).Add(keyType).Block(
			jen.Return(jen.Id("e").Dot(e.key.Name)),
		),
	}
	for _, fd := range e.Fields {
		args = append(args, jen.Id(e.column(fd)))
	}
	f.Line()
	f.Commentf("%s describes the %s table.", e.table, schema.Ref{Schema: e.Schema, Table: e.Table})
	f.Var().Id(e.table).Op("=").Qual(schemaPkg, "MustTable").Custom(multiline, args...)
}

func (g *Generator) genModel(f *jen.File, e *entity) {
	args := []jen.Code{jen.Id(e.table)}
	if c, ok := dialectConsts[g.cfg.Dialect]; ok {
		args = append(args, jen.Qual(tablekitPkg, "WithDialect").Call(jen.Qual(dialectPkg, c)))
	}
	f.Line()
	f.Commentf("%s runs the data-access operations of %s entities.", e.model, e.Name)
	f.Var().Id(e.model).Op("=").Qual(tablekitPkg, "NewModel").Types(jen.Id(e.Name)).Call(args...)
}

// value returns the expression bound for fd, wrapping codec fields.
func value(fd *load.Field) *jen.Statement {
	if fn, ok := codecFuncs[fd.Codec]; ok {
		return jen.Qual(codecPkg, fn).Call(jen.Op("&").Id("e").Dot(fd.Name))
	}
	return jen.Id("e").Dot(fd.Name)
}

// target returns the scan destination of fd.
func target(fd *load.Field) *jen.Statement {
	if fn, ok := codecFuncs[fd.Codec]; ok {
		return jen.Qual(codecPkg, fn).Call(jen.Op("&").Id("e").Dot(fd.Name))
	}
	return jen.Op("&").Id("e").Dot(fd.Name)
}

func (g *Generator) genBind(f *jen.File, e *entity) {
	f.Line()
	f.Comment("Bind implements tablekit.Binder.")
	f.Func().Params(jen.Id("e").Op("*").Id(e.Name)).Id("Bind").Params(
		jen.Id("c").Qual(schemaPkg, "Column").Types(jen.Id(e.Name)),
		jen.Id("q").Qual(tablekitPkg, "Bindable"),
	).Error().Block(
		jen.Switch(jen.Id("c").Dot("Field").Call()).BlockFunc(func(grp *jen.Group) {
			for _, fd := range e.Fields {
				grp.Case(jen.Lit(fd.Name)).Block(jen.Id("q").Dot("Bind").Call(value(fd)))
			}
			grp.Default().Block(
				jen.Return(jen.Qual(tablekitPkg, "UnknownColumn").Call(jen.Id("c").Dot("Field").Call())),
			)
		}),
		jen.Return(jen.Nil()),
	)
}

func (g *Generator) genTarget(f *jen.File, e *entity) {
	f.Line()
	f.Comment("Target implements tablekit.Record.")
	f.Func().Params(jen.Id("e").Op("*").Id(e.Name)).Id("Target").Params(
		jen.Id("c").Qual(schemaPkg, "Column").Types(jen.Id(e.Name)),
	).Params(jen.Any(), jen.Error()).Block(
		jen.Switch(jen.Id("c").Dot("Field").Call()).BlockFunc(func(grp *jen.Group) {
			for _, fd := range e.Fields {
				grp.Case(jen.Lit(fd.Name)).Block(jen.Return(target(fd), jen.Nil()))
			}
			grp.Default().Block(
				jen.Return(jen.Nil(), jen.Qual(tablekitPkg, "UnknownColumn").Call(jen.Id("c").Dot("Field").Call())),
			)
		}),
	)
}

func (g *Generator) genRelations(f *jen.File, e *entity) {
	for _, r := range g.relations(e) {
		f.Line()
		f.Commentf("%s relates %s entities to the %s referenced by %s.", r.name, e.Name, r.parent.Name, r.fk.Name)
		f.Var().Id(r.name).Op("=").Qual(tablekitPkg, "MustRelation").Call(
			jen.Id(e.model), jen.Id(r.parent.model), jen.Id(e.column(r.fk)),
		)
	}
}
