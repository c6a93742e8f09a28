package schema

import (
	"github.com/roach88/configured/internal/ir"
)

// ConfigSchema validates and coerces raw configuration values.
//
// Implementations must be immutable and safe for concurrent use.
type ConfigSchema interface {
	// AsField returns the field descriptor used for introspection and
	// documentation. nil means no configuration is accepted.
	AsField() *Field

	// Resolve validates and coerces raw. Validation failures are reported in
	// the Result; a non-nil error signals a defect, never bad input. With a
	// non-nil error the Result is the zero Result, which is not OK.
	Resolve(raw ir.Value) (Result, error)
}

// Field kinds as reported by Field.Kind.
const (
	KindAny    = "any"
	KindString = "string"
	KindInt    = "int"
	KindBool   = "bool"
	KindNull   = "null"
	KindList   = "list"
	KindStruct = "struct"
)

// Field describes the shape a schema accepts.
type Field struct {
	Kind        string       `json:"kind"`
	Required    bool         `json:"required"`
	Default     ir.Value     `json:"default,omitempty"`
	Description string       `json:"description,omitempty"`
	Constraint  string       `json:"constraint,omitempty"` // CUE source of a constrained leaf
	Fields      []NamedField `json:"fields,omitempty"`     // struct members in declaration order
	Elem        *Field       `json:"elem,omitempty"`       // list element or struct pattern value
}

// NamedField is a struct member.
type NamedField struct {
	Name string `json:"name"`
	Field
}

// IsEmpty reports whether the field is a struct that declares nothing and
// accepts no additional keys.
func (f *Field) IsEmpty() bool {
	return f == nil || (f.Kind == KindStruct && len(f.Fields) == 0 && f.Elem == nil)
}

// Lookup returns the member field with the given name.
func (f *Field) Lookup(name string) (*Field, bool) {
	if f == nil {
		return nil, false
	}
	for i := range f.Fields {
		if f.Fields[i].Name == name {
			return &f.Fields[i].Field, true
		}
	}
	return nil, false
}

// ToValue renders the descriptor as an ir.Value for display and
// fingerprinting. A nil field renders as null.
func (f *Field) ToValue() ir.Value {
	if f == nil {
		return ir.Null{}
	}
	obj := ir.Object{
		"kind":     ir.String(f.Kind),
		"required": ir.Bool(f.Required),
	}
	if f.Default != nil {
		obj["default"] = ir.Clone(f.Default)
	}
	if f.Description != "" {
		obj["description"] = ir.String(f.Description)
	}
	if f.Constraint != "" {
		obj["constraint"] = ir.String(f.Constraint)
	}
	if len(f.Fields) > 0 {
		fields := make(ir.Array, len(f.Fields))
		for i := range f.Fields {
			member := f.Fields[i].Field.ToValue().(ir.Object)
			member["name"] = ir.String(f.Fields[i].Name)
			fields[i] = member
		}
		obj["fields"] = fields
	}
	if f.Elem != nil {
		obj["elem"] = f.Elem.ToValue()
	}
	return obj
}
