// Package codec stores structured values in single columns.
//
// Entities wrap the field in their Bind and Target methods:
//
//	case "Data":
//		q.Bind(codec.JSON(&e.Data))
//	...
//	case "Data":
//		return codec.JSON(&e.Data), nil
//
// Nil pointers, interfaces, maps and slices are stored as NULL. NULL is scanned
// as the zero value.
package codec

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// Format encodes values to bytes and back.
type Format interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	// Text reports whether encoded values are sent to the database as
	// strings rather than byte slices.
	Text() bool
}

type jsonFormat struct{}

func (jsonFormat) Name() string                       { return "json" }
func (jsonFormat) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonFormat) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonFormat) Text() bool                         { return true }

type msgpackFormat struct{}

func (msgpackFormat) Name() string                       { return "msgpack" }
func (msgpackFormat) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackFormat) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
func (msgpackFormat) Text() bool                         { return false }

// Formats.
var (
	JSONFormat    Format = jsonFormat{}
	MsgPackFormat Format = msgpackFormat{}
)

// Field binds and scans the value behind a pointer with a Format.
type Field[T any] struct {
	format Format
	p      *T
}

// JSON returns a Field storing *p as a JSON document.
func JSON[T any](p *T) *Field[T] { return New(JSONFormat, p) }

// MsgPack returns a Field storing *p as MessagePack bytes.
func MsgPack[T any](p *T) *Field[T] { return New(MsgPackFormat, p) }

// New returns a Field storing *p with format f.
func New[T any](f Format, p *T) *Field[T] {
	return &Field[T]{format: f, p: p}
}

// Value implements driver.Valuer.
func (f *Field[T]) Value() (driver.Value, error) {
	if f.p == nil || isNil(f.p) {
		return nil, nil
	}
	b, err := f.format.Marshal(*f.p)
	if err != nil {
		return nil, fmt.Errorf("codec: %s encode %T: %w", f.format.Name(), *f.p, err)
	}
	if f.format.Text() {
		return string(b), nil
	}
	return b, nil
}

// Scan implements sql.Scanner.
func (f *Field[T]) Scan(src any) error {
	var zero T
	switch v := src.(type) {
	case nil:
		*f.p = zero
		return nil
	case []byte:
		return f.decode(v)
	case string:
		return f.decode([]byte(v))
	default:
		return fmt.Errorf("codec: %s cannot scan %T into %T", f.format.Name(), src, zero)
	}
}

func (f *Field[T]) decode(b []byte) error {
	var v T
	if err := f.format.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("codec: %s decode %T: %w", f.format.Name(), v, err)
	}
	*f.p = v
	return nil
}

func isNil[T any](p *T) bool {
	rv := reflect.ValueOf(p).Elem()
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

var (
	_ driver.Valuer = (*Field[struct{}])(nil)
	_ sql.Scanner   = (*Field[struct{}])(nil)
)
