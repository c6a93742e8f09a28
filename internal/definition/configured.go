package definition

import (
	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/schema"
)

// MappingFunc turns outer-shaped config into the shape the wrapped
// definition expects. It must be pure and total over validated input;
// a returned error is reported as a *TransformError.
type MappingFunc func(cfg ir.Value) (ir.Value, error)

// Mapping is either a fixed config value or a MappingFunc.
//
// Fixed values can be shown verbatim by describe output. Do not use them
// for secrets.
type Mapping struct {
	value ir.Value
	fn    MappingFunc
	ident string
}

// Value returns a mapping that always produces v.
func Value(v ir.Value) Mapping {
	if v == nil {
		v = ir.Null{}
	}
	return Mapping{value: ir.Clone(v)}
}

// Func returns a mapping computed by fn.
func Func(fn MappingFunc) Mapping {
	return Mapping{fn: fn}
}

// NamedFunc is Func with an identifier used as the configured name when no
// explicit name is given.
func NamedFunc(ident string, fn MappingFunc) Mapping {
	return Mapping{fn: fn, ident: ident}
}

// IsFunc reports whether the mapping is computed.
func (m Mapping) IsFunc() bool {
	return m.fn != nil
}

// Fixed returns the fixed value, if any.
func (m Mapping) Fixed() (ir.Value, bool) {
	if m.fn != nil || m.value == nil {
		return nil, false
	}
	return ir.Clone(m.value), true
}

// Ident returns the identifier given to NamedFunc.
func (m Mapping) Ident() string {
	return m.ident
}

func (m Mapping) isZero() bool {
	return m.fn == nil && m.value == nil
}

// ConfiguredSchema layers an outer schema and a mapping over a parent
// definition. Only Configure constructs it.
type ConfiguredSchema struct {
	parent  Configurable
	outer   schema.ConfigSchema
	mapping Mapping
}

var _ schema.ConfigSchema = (*ConfiguredSchema)(nil)

// Parent returns the wrapped definition.
func (c *ConfiguredSchema) Parent() Configurable {
	return c.parent
}

// Outer returns the schema raw config is validated against, or nil when no
// config is accepted.
func (c *ConfiguredSchema) Outer() schema.ConfigSchema {
	return c.outer
}

// Mapping returns the layer's mapping.
func (c *ConfiguredSchema) Mapping() Mapping {
	return c.mapping
}

// AsField implements schema.ConfigSchema.
func (c *ConfiguredSchema) AsField() *schema.Field {
	if c.outer == nil {
		return nil
	}
	return c.outer.AsField()
}

// Resolve validates raw against the outer schema and applies the mapping.
// Invalid input never reaches the mapping. The output is not validated
// against the parent's schema.
func (c *ConfiguredSchema) Resolve(raw ir.Value) (schema.Result, error) {
	cfg := ir.Value(ir.Null{})
	if c.outer == nil {
		if !isEmptyConfig(raw) {
			return schema.Failure(schema.Violation{
				Code:    schema.ErrCodeNotAccepted,
				Message: "configuration is not accepted here",
			}), nil
		}
	} else {
		res, err := c.outer.Resolve(raw)
		if err != nil {
			return schema.Result{}, err
		}
		if !res.OK() {
			return res, nil
		}
		cfg = res.Value()
	}

	if c.mapping.fn == nil {
		return schema.Success(ir.Clone(c.mapping.value)), nil
	}
	out, err := c.mapping.fn(cfg)
	if err != nil {
		return schema.Result{}, &TransformError{Target: Label(c.parent), Err: err}
	}
	return schema.Success(out), nil
}

func isEmptyConfig(v ir.Value) bool {
	if ir.IsNull(v) {
		return true
	}
	obj, ok := v.(ir.Object)
	return ok && len(obj) == 0
}
