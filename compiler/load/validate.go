package load

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"golang.org/x/text/cases"

	"github.com/syssam/tablekit/dialect"
	"github.com/syssam/tablekit/schema"
)

// SQL identifiers are compared case-insensitively, as unquoted names are
// folded by every supported database.
var fold = cases.Fold()

// timestampTypes lists the field types the timestamp hooks can set.
var timestampTypes = map[string]bool{
	"time.Time":    true,
	"*time.Time":   true,
	"sql.NullTime": true,
}

// Validate checks the description and reports every problem found.
func (d *Description) Validate() error {
	var errs []error
	if d.Package != "" && !token.IsIdentifier(d.Package) {
		errs = append(errs, NewSchemaError("", "", fmt.Sprintf("package %q is not a valid identifier", d.Package), nil))
	}
	if d.Dialect != "" {
		switch dialect.Normalize(d.Dialect) {
		case dialect.Postgres, dialect.MySQL, dialect.SQLite:
		default:
			errs = append(errs, NewSchemaError("", "", fmt.Sprintf("unknown dialect %q", d.Dialect), nil))
		}
	}
	if len(d.Entities) == 0 {
		errs = append(errs, NewSchemaError("", "", "no entities", nil))
	}
	names := make(map[string]bool, len(d.Entities))
	tables := make(map[string]string, len(d.Entities))
	for _, e := range d.Entities {
		switch {
		case !token.IsIdentifier(e.Name) || !token.IsExported(e.Name):
			errs = append(errs, NewSchemaError(e.Name, "", "entity name must be an exported identifier", nil))
			continue
		case names[e.Name]:
			errs = append(errs, NewSchemaError(e.Name, "", "duplicate entity", nil))
			continue
		}
		names[e.Name] = true
		ref := fold.String(schema.Ref{Schema: e.Schema, Table: e.Table}.String())
		if other, ok := tables[ref]; ok {
			errs = append(errs, NewSchemaError(e.Name, "", fmt.Sprintf("table %q already used by %s", e.Table, other), nil))
		}
		tables[ref] = e.Name
		errs = append(errs, d.validateEntity(e)...)
	}
	return errors.Join(errs...)
}

func (d *Description) validateEntity(e *Entity) []error {
	var (
		errs    []error
		pks     int
		fields  = make(map[string]bool, len(e.Fields))
		columns = make(map[string]string, len(e.Fields))
	)
	if e.Table == "" {
		errs = append(errs, NewSchemaError(e.Name, "", "empty table name", nil))
	}
	for _, f := range e.Fields {
		if !token.IsIdentifier(f.Name) || !token.IsExported(f.Name) {
			errs = append(errs, NewSchemaError(e.Name, f.Name, "field name must be an exported identifier", nil))
			continue
		}
		if fields[f.Name] {
			errs = append(errs, NewSchemaError(e.Name, f.Name, "duplicate field", nil))
			continue
		}
		fields[f.Name] = true
		if f.Column == "" {
			errs = append(errs, NewSchemaError(e.Name, f.Name, "empty column name", nil))
		} else if other, ok := columns[fold.String(f.Column)]; ok {
			errs = append(errs, NewSchemaError(e.Name, f.Name, fmt.Sprintf("column %q already used by %s", f.Column, other), nil))
		} else {
			columns[fold.String(f.Column)] = f.Name
		}
		if f.PK {
			pks++
		}
		if err := d.validateField(e, f); err != nil {
			errs = append(errs, err)
		}
	}
	if pks != 1 {
		errs = append(errs, NewSchemaError(e.Name, "", fmt.Sprintf("want exactly one primary key, got %d", pks), nil))
	}
	return errs
}

func (d *Description) validateField(e *Entity, f *Field) error {
	if err := d.checkType(f.Type); err != nil {
		return NewSchemaError(e.Name, f.Name, fmt.Sprintf("invalid type %q", f.Type), err)
	}
	roles := 0
	for _, set := range []bool{f.PK, f.References != "", f.Timestamp != ""} {
		if set {
			roles++
		}
	}
	if roles > 1 {
		return NewSchemaError(e.Name, f.Name, "pk, references and timestamp are exclusive", nil)
	}
	if f.Codec != "" {
		if f.Codec != CodecJSON && f.Codec != CodecMsgPack {
			return NewSchemaError(e.Name, f.Name, fmt.Sprintf("unknown codec %q", f.Codec), nil)
		}
		if f.Role() != schema.RoleData {
			return NewSchemaError(e.Name, f.Name, "codec is only allowed on data fields", nil)
		}
	}
	if f.Timestamp != "" {
		if _, err := schema.ParseTimestampKind(f.Timestamp); err != nil {
			return NewSchemaError(e.Name, f.Name, "", err)
		}
		if !timestampTypes[f.Type] {
			return NewSchemaError(e.Name, f.Name, fmt.Sprintf("timestamp field must be time.Time, *time.Time or sql.NullTime, got %s", f.Type), nil)
		}
	}
	if f.References != "" {
		parent, ok := d.Entity(f.References)
		if !ok {
			return NewSchemaError(e.Name, f.Name, fmt.Sprintf("references unknown entity %q", f.References), nil)
		}
		if pk := parent.PrimaryKey(); pk != nil && pk.Type != f.Type {
			return NewSchemaError(e.Name, f.Name, fmt.Sprintf("type %s does not match %s primary key type %s", f.Type, parent.Name, pk.Type), nil)
		}
	}
	return nil
}

// checkType accepts identifiers, qualified identifiers with a known
// qualifier, pointers, slices, fixed arrays and maps of those.
func (d *Description) checkType(s string) error {
	if s == "" {
		return errors.New("empty type")
	}
	expr, err := parser.ParseExpr(s)
	if err != nil {
		return err
	}
	var check func(ast.Expr) error
	check = func(x ast.Expr) error {
		switch x := x.(type) {
		case *ast.Ident:
			return nil
		case *ast.SelectorExpr:
			q, ok := x.X.(*ast.Ident)
			if !ok {
				return fmt.Errorf("unsupported qualifier in %s", s)
			}
			if _, ok := d.ImportPath(q.Name); !ok {
				return fmt.Errorf("unknown package %q", q.Name)
			}
			return nil
		case *ast.StarExpr:
			return check(x.X)
		case *ast.ArrayType:
			if x.Len != nil {
				if _, ok := x.Len.(*ast.BasicLit); !ok {
					return fmt.Errorf("unsupported array length in %s", s)
				}
			}
			return check(x.Elt)
		case *ast.MapType:
			if err := check(x.Key); err != nil {
				return err
			}
			return check(x.Value)
		case *ast.InterfaceType:
			if x.Methods == nil || len(x.Methods.List) == 0 {
				return nil
			}
		}
		return fmt.Errorf("unsupported type expression %s", s)
	}
	return check(expr)
}
