package definition

import (
	"fmt"

	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/schema"
)

// Kind identifies a definition kind.
type Kind string

const (
	KindResource Kind = "resource"
	KindLogger   Kind = "logger"
	KindExecutor Kind = "executor"
	KindOp       Kind = "op"
	KindGraph    Kind = "graph"
)

// Kinds lists every configurable kind in display order.
var Kinds = []Kind{KindResource, KindLogger, KindExecutor, KindOp, KindGraph}

// Variant reports whether configuring a kind requires a name.
func (k Kind) Variant() Variant {
	switch k {
	case KindResource, KindLogger:
		return Anonymous
	case KindExecutor, KindOp, KindGraph:
		return Named
	default:
		return 0
	}
}

// ParseKind converts a catalog key into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown definition kind %q", s)
}

// Variant is the configuring capability of a kind.
type Variant int

const (
	// Anonymous kinds are configured without a name.
	Anonymous Variant = iota + 1
	// Named kinds require a unique, non-empty name when configured.
	Named
)

func (v Variant) String() string {
	switch v {
	case Anonymous:
		return "anonymous"
	case Named:
		return "named"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Configurable is a definition that may own a config schema.
//
// The set of implementations is closed: only this package can add kinds.
// Definitions are immutable and safe for concurrent use.
type Configurable interface {
	Kind() Kind
	Variant() Variant

	// Name is empty for anonymous kinds.
	Name() string
	Description() string

	// ConfigSchema returns the owned schema, or nil.
	ConfigSchema() schema.ConfigSchema
	HasConfigField() bool
	ConfigField() *schema.Field
	// GetConfigField panics with ErrNoConfigField when there is no field.
	GetConfigField() *schema.Field

	// ApplyConfigMapping resolves cfg through one configured layer. Plain
	// definitions return cfg unchanged.
	ApplyConfigMapping(cfg ir.Value) (schema.Result, error)

	copyForConfigured(name, description string, cs *ConfiguredSchema) Configurable
}

// base holds the state shared by every kind.
type base struct {
	name        string
	description string
	schema      schema.ConfigSchema
}

func (b *base) Name() string                      { return b.name }
func (b *base) Description() string               { return b.description }
func (b *base) ConfigSchema() schema.ConfigSchema { return b.schema }

func (b *base) ConfigField() *schema.Field {
	if b.schema == nil {
		return nil
	}
	return b.schema.AsField()
}

func (b *base) HasConfigField() bool {
	f := b.ConfigField()
	return f != nil && !f.IsEmpty()
}

func (b *base) GetConfigField() *schema.Field {
	if !b.HasConfigField() {
		panic(fmt.Errorf("%w: %q", ErrNoConfigField, b.name))
	}
	return b.ConfigField()
}

func (b *base) ApplyConfigMapping(cfg ir.Value) (schema.Result, error) {
	if cs, ok := b.schema.(*ConfiguredSchema); ok {
		return cs.Resolve(cfg)
	}
	return schema.Success(cfg), nil
}

// Spec carries the attributes used to declare a definition.
type Spec struct {
	Name        string
	Description string
	Schema      schema.ConfigSchema

	// RequiredResources lists resource keys used by resources and ops.
	RequiredResources []string
	// Tags are attached to ops and graphs.
	Tags map[string]string
}

func (s Spec) base(named bool) (base, error) {
	if named && s.Name == "" {
		return base{}, ErrMissingName
	}
	b := base{description: s.Description, schema: s.Schema}
	if named {
		b.name = s.Name
	}
	return b, nil
}

// Label renders a definition for messages, e.g. `op "load"`.
func Label(c Configurable) string {
	if c.Name() == "" {
		return string(c.Kind())
	}
	return fmt.Sprintf("%s %q", c.Kind(), c.Name())
}
