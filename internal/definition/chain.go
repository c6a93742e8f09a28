package definition

import (
	"github.com/roach88/configured/internal/schema"
)

// AcceptedSchema returns the schema raw config for c is validated against:
// the outer schema of a configured definition, otherwise c's own schema.
func AcceptedSchema(c Configurable) schema.ConfigSchema {
	if cs, ok := c.ConfigSchema().(*ConfiguredSchema); ok {
		return cs.outer
	}
	return c.ConfigSchema()
}

// Layers returns c followed by every definition it wraps, outermost first.
func Layers(c Configurable) []Configurable {
	var out []Configurable
	for c != nil {
		out = append(out, c)
		cs, ok := c.ConfigSchema().(*ConfiguredSchema)
		if !ok {
			break
		}
		c = cs.parent
	}
	return out
}

// Root returns the innermost definition of c's chain.
func Root(c Configurable) Configurable {
	layers := Layers(c)
	return layers[len(layers)-1]
}

// IsConfigured reports whether c wraps another definition.
func IsConfigured(c Configurable) bool {
	_, ok := c.ConfigSchema().(*ConfiguredSchema)
	return ok
}
