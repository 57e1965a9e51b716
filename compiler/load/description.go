// Package load reads entity descriptions consumed by the code generator.
//
// A description is a YAML document listing entities and their fields:
//
//	package: forest
//	dialect: postgres
//	schema: public
//	entities:
//	  - name: Forest
//	    fields:
//	      - {name: ID, type: int64, pk: true}
//	      - {name: Name, type: string}
//	  - name: Tree
//	    fields:
//	      - {name: ID, type: int64, pk: true}
//	      - {name: ForestID, type: int64, references: Forest}
//	      - {name: Planted, type: time.Time, timestamp: created}
//
// Table and column names default to the snake case form of the entity
// (pluralized) and field names.
package load

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"

	"github.com/syssam/tablekit/schema"
)

// Description is the root of an entity description file.
type Description struct {
	Package  string            `yaml:"package,omitempty"`
	Dialect  string            `yaml:"dialect,omitempty"`
	Schema   string            `yaml:"schema,omitempty"`
	Imports  map[string]string `yaml:"imports,omitempty"`
	Entities []*Entity         `yaml:"entities"`
}

// Entity describes one table-backed entity type.
type Entity struct {
	Name    string   `yaml:"name"`
	Schema  string   `yaml:"schema,omitempty"`
	Table   string   `yaml:"table,omitempty"`
	Comment string   `yaml:"comment,omitempty"`
	Fields  []*Field `yaml:"fields"`
}

// Field describes one column of an entity.
type Field struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Column     string            `yaml:"column,omitempty"`
	PK         bool              `yaml:"pk,omitempty"`
	References string            `yaml:"references,omitempty"`
	Timestamp  string            `yaml:"timestamp,omitempty"`
	Codec      string            `yaml:"codec,omitempty"`
	Tags       map[string]string `yaml:"tags,omitempty"`
	Comment    string            `yaml:"comment,omitempty"`
}

// Codec names accepted in field descriptions.
const (
	CodecJSON    = "json"
	CodecMsgPack = "msgpack"
)

// DefaultImports maps package qualifiers usable in field types without
// an explicit imports entry.
var DefaultImports = map[string]string{
	"time": "time",
	"sql":  "database/sql",
	"json": "encoding/json",
	"uuid": "github.com/google/uuid",
}

var rules = newRules()

func newRules() *inflect.Ruleset {
	rs := inflect.NewDefaultRuleset()
	// Longer acronyms first; replacements are applied in order.
	for _, a := range []string{"UUID", "HTTP", "HTML", "JSON", "URL", "API", "SQL", "ID"} {
		rs.AddAcronym(a)
	}
	return rs
}

// Snake returns the snake case form of a Go identifier: "ForestID" -> "forest_id".
func Snake(s string) string { return rules.Underscore(s) }

// Plural returns the plural form of an entity name: "Tree" -> "Trees".
func Plural(s string) string { return rules.Pluralize(s) }

// TableName returns the default table name of an entity: "SuperPerson" -> "super_people".
func TableName(entity string) string { return rules.Tableize(entity) }

// Load reads, completes and validates the description stored at path.
func Load(path string) (*Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tablegen: load: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a description from r, fills in default names and
// validates the result. Unknown keys are rejected.
func Parse(r io.Reader) (*Description, error) {
	d := &Description{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(d); err != nil && !errors.Is(err, io.EOF) {
		return nil, NewSchemaError("", "", "decode description", err)
	}
	d.Complete()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Complete fills in the default schema, table and column names.
func (d *Description) Complete() {
	for _, e := range d.Entities {
		if e.Schema == "" {
			e.Schema = d.Schema
		}
		if e.Table == "" && e.Name != "" {
			e.Table = TableName(e.Name)
		}
		for _, f := range e.Fields {
			if f.Column == "" && f.Name != "" {
				f.Column = Snake(f.Name)
			}
		}
	}
}

// Entity returns the entity with the given name.
func (d *Description) Entity(name string) (*Entity, bool) {
	for _, e := range d.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// ImportPath resolves a package qualifier used in a field type.
func (d *Description) ImportPath(qualifier string) (string, bool) {
	if p, ok := d.Imports[qualifier]; ok {
		return p, true
	}
	p, ok := DefaultImports[qualifier]
	return p, ok
}

// PrimaryKey returns the primary key field, or nil if none is declared.
func (e *Entity) PrimaryKey() *Field {
	for _, f := range e.Fields {
		if f.PK {
			return f
		}
	}
	return nil
}

// ForeignKeys returns the fields referencing other entities.
func (e *Entity) ForeignKeys() []*Field {
	var fks []*Field
	for _, f := range e.Fields {
		if f.References != "" {
			fks = append(fks, f)
		}
	}
	return fks
}

// Role returns the column role of the field.
func (f *Field) Role() schema.Role {
	switch {
	case f.PK:
		return schema.RolePrimaryKey
	case f.References != "":
		return schema.RoleForeignKey
	case f.Timestamp != "":
		return schema.RoleTimestamp
	default:
		return schema.RoleData
	}
}
