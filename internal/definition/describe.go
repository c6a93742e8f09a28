package definition

import (
	"github.com/roach88/configured/internal/ir"
)

// Describe renders c and the chain it wraps for display and fingerprinting.
// Fixed values are included verbatim; mapping functions appear by their
// identifier only.
func Describe(c Configurable) ir.Object {
	obj := ir.Object{
		"kind":         ir.String(c.Kind()),
		"variant":      ir.String(c.Variant().String()),
		"config_field": c.ConfigField().ToValue(),
	}
	if c.Name() != "" {
		obj["name"] = ir.String(c.Name())
	}
	if c.Description() != "" {
		obj["description"] = ir.String(c.Description())
	}

	cs, ok := c.ConfigSchema().(*ConfiguredSchema)
	if !ok {
		return obj
	}
	layer := ir.Object{}
	if v, fixed := cs.mapping.Fixed(); fixed {
		layer["mapping"] = ir.String("value")
		layer["value"] = v
	} else {
		layer["mapping"] = ir.String("func")
		if cs.mapping.ident != "" {
			layer["ident"] = ir.String(cs.mapping.ident)
		}
	}
	layer["parent"] = Describe(cs.parent)
	obj["configured"] = layer
	return obj
}

// Fingerprint hashes Describe(c). Two function mappings with the same
// identifier hash equal.
func Fingerprint(c Configurable) (string, error) {
	return ir.Fingerprint(ir.DomainDefinition, Describe(c))
}
