package gen

import (
	"fmt"
	"go/ast"
	"go/parser"

	"github.com/dave/jennifer/jen"
)

// typeCode converts a field type expression into jennifer code, resolving
// package qualifiers through the description imports.
func (g *Generator) typeCode(s string) (*jen.Statement, error) {
	expr, err := parser.ParseExpr(s)
	if err != nil {
		return nil, err
	}
	return g.exprCode(expr)
}

func (g *Generator) exprCode(x ast.Expr) (*jen.Statement, error) {
	switch x := x.(type) {
	case *ast.Ident:
		return jen.Id(x.Name), nil
	case *ast.SelectorExpr:
		q, ok := x.X.(*ast.Ident)
		if !ok {
			return nil, fmt.Errorf("unsupported qualifier %T", x.X)
		}
		path, ok := g.desc.ImportPath(q.Name)
		if !ok {
			return nil, fmt.Errorf("unknown package %q", q.Name)
		}
		return jen.Qual(path, x.Sel.Name), nil
	case *ast.StarExpr:
		elem, err := g.exprCode(x.X)
		if err != nil {
			return nil, err
		}
		return jen.Op("*").Add(elem), nil
	case *ast.ArrayType:
		elem, err := g.exprCode(x.Elt)
		if err != nil {
			return nil, err
		}
		if x.Len == nil {
			return jen.Index().Add(elem), nil
		}
		n, ok := x.Len.(*ast.BasicLit)
		if !ok {
			return nil, fmt.Errorf("unsupported array length %T", x.Len)
		}
		return jen.Index(jen.Id(n.Value)).Add(elem), nil
	case *ast.MapType:
		key, err := g.exprCode(x.Key)
		if err != nil {
			return nil, err
		}
		val, err := g.exprCode(x.Value)
		if err != nil {
			return nil, err
		}
		return jen.Map(key).Add(val), nil
	case *ast.InterfaceType:
		return jen.Any(), nil
	}
	return nil, fmt.Errorf("unsupported type expression %T", x)
}
