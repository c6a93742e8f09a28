package definition

import (
	"fmt"
	"reflect"

	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/schema"
)

// Option customizes Configure.
type Option func(*options)

type options struct {
	name        string
	schema      schema.ConfigSchema
	description *string
}

// WithName sets the configured name. Required for named kinds unless the
// mapping was built with NamedFunc; ignored for anonymous kinds.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithSchema sets the outer schema raw config is validated against.
func WithSchema(s schema.ConfigSchema) Option {
	return func(o *options) { o.schema = s }
}

// WithDescription overrides the inherited description.
func WithDescription(description string) Option {
	return func(o *options) { o.description = &description }
}

// Configure returns a copy of target whose config is produced by m.
// target is not modified.
//
// Without WithSchema, a function mapping accepts whatever target accepts
// and a fixed value accepts no further config.
func Configure[T Configurable](target T, m Mapping, opts ...Option) (T, error) {
	var zero T
	if err := checkNil(target); err != nil {
		return zero, err
	}
	out, err := configure(target, m, opts)
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}

// ConfigureAny is Configure for targets whose type is only known at run
// time, such as entries loaded from a catalog.
func ConfigureAny(target any, m Mapping, opts ...Option) (Configurable, error) {
	if err := checkNil(target); err != nil {
		return nil, err
	}
	switch t := target.(type) {
	case *PendingInvocation:
		return nil, fmt.Errorf("%w of op %q: finalize it into a definition first", ErrPendingInvocation, t.op.Name())
	case Configurable:
		return configure(t, m, opts)
	default:
		return nil, &CapabilityError{Got: fmt.Sprintf("%T", target)}
	}
}

// checkNil rejects nil targets, including nil pointers held in an interface.
func checkNil(target any) error {
	if target == nil {
		return &CapabilityError{Got: "nil"}
	}
	if rv := reflect.ValueOf(target); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return &CapabilityError{Got: fmt.Sprintf("nil %T", target)}
	}
	return nil
}

func configure(target Configurable, m Mapping, opts []Option) (Configurable, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if m.isZero() {
		return nil, fmt.Errorf("configure %s: %w", Label(target), ErrNoMapping)
	}

	var name string
	switch target.Variant() {
	case Named:
		name = o.name
		if name == "" {
			name = m.ident
		}
		if name == "" {
			return nil, fmt.Errorf("configure %s: %w: pass WithName or use NamedFunc", Label(target), ErrMissingName)
		}
	case Anonymous:
	default:
		return nil, &CapabilityError{Got: fmt.Sprintf("%T", target)}
	}

	outer := o.schema
	if outer != nil && !m.IsFunc() {
		return nil, fmt.Errorf("configure %s: %w", Label(target), ErrSchemaWithFixedValue)
	}
	if outer == nil && m.IsFunc() {
		outer = AcceptedSchema(target)
	}

	description := target.Description()
	if o.description != nil {
		description = *o.description
	}

	cs := &ConfiguredSchema{parent: target, outer: outer, mapping: m}
	return target.copyForConfigured(name, description, cs), nil
}

// Configurer binds a target and options for configuring with a mapping
// supplied later, mirroring decorator usage.
type Configurer[T Configurable] struct {
	target T
	opts   []Option
}

// NewConfigurer returns a Configurer for target.
func NewConfigurer[T Configurable](target T, opts ...Option) Configurer[T] {
	return Configurer[T]{target: target, opts: opts}
}

// Func configures the target with fn.
func (c Configurer[T]) Func(fn MappingFunc) (T, error) {
	return Configure(c.target, Func(fn), c.opts...)
}

// NamedFunc configures the target with fn, using ident as the fallback name.
func (c Configurer[T]) NamedFunc(ident string, fn MappingFunc) (T, error) {
	return Configure(c.target, NamedFunc(ident, fn), c.opts...)
}

// Value configures the target with a fixed value.
func (c Configurer[T]) Value(v ir.Value) (T, error) {
	return Configure(c.target, Value(v), c.opts...)
}
