package querygen

import (
	"errors"
	"fmt"
	"strings"
)

// TableRef is a normalized table reference.
type TableRef struct {
	Schema string
	Name   string
}

// Table returns a reference to a table in the default schema.
func Table(name string) TableRef {
	return TableRef{Name: strings.TrimSpace(name)}
}

// SchemaTable returns a schema qualified reference.
func SchemaTable(schema, name string) TableRef {
	return TableRef{Schema: strings.TrimSpace(schema), Name: strings.TrimSpace(name)}
}

// Tabler is implemented by higher level references (e.g. models) that
// resolve to a table.
type Tabler interface {
	TableRef() TableRef
}

// ResolveTable normalizes v into a TableRef. It accepts a TableRef,
// *TableRef, a Tabler, or a string in the form "table" or "schema.table".
func ResolveTable(v any) (TableRef, error) {
	var ref TableRef
	switch v := v.(type) {
	case TableRef:
		ref = SchemaTable(v.Schema, v.Name)
	case *TableRef:
		if v == nil {
			return TableRef{}, errors.New("querygen: nil table reference")
		}
		ref = SchemaTable(v.Schema, v.Name)
	case Tabler:
		t := v.TableRef()
		ref = SchemaTable(t.Schema, t.Name)
	case string:
		if schema, name, ok := strings.Cut(v, "."); ok {
			ref = SchemaTable(schema, name)
		} else {
			ref = Table(v)
		}
	default:
		return TableRef{}, fmt.Errorf("querygen: cannot resolve %T to a table", v)
	}
	if ref.Name == "" {
		return TableRef{}, errors.New("querygen: empty table name")
	}
	return ref, nil
}

// WithDefaultSchema fills an empty schema.
func (t TableRef) WithDefaultSchema(schema string) TableRef {
	if t.Schema == "" {
		t.Schema = schema
	}
	return t
}

// Equal reports whether t and o name the same table.
func (t TableRef) Equal(o TableRef) bool {
	return t.Schema == o.Schema && t.Name == o.Name
}

// String returns the unquoted dotted form.
func (t TableRef) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}
