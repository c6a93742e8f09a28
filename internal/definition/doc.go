// Package definition implements configurable definitions and the configure
// operation that layers a new configuration shape over an existing one.
//
// Every definition kind implements exactly one capability variant, fixed
// when the kind is declared:
//
//   - Anonymous kinds (ResourceDefinition, LoggerDefinition) are configured
//     without a name
//   - Named kinds (ExecutorDefinition, OpDefinition, GraphDefinition) require
//     a non-empty name for every configured copy
//
// Configure never mutates its target. It returns a sibling of the same kind
// whose schema is a ConfiguredSchema: an outer schema plus a Mapping that
// turns outer-shaped input into the shape the target expects.
//
//	dev, err := definition.Configure(s3,
//	    definition.Func(func(cfg ir.Value) (ir.Value, error) {
//	        prefix := cfg.(ir.Object)["prefix"].(ir.String)
//	        return ir.Object{"bucket": prefix + "-dev"}, nil
//	    }),
//	    definition.WithName("dev"),
//	    definition.WithSchema(schema.MustCompile(`prefix: string`)),
//	)
//
// ConfiguredSchema.Resolve handles exactly one layer. It validates against
// the outer schema and applies the mapping. The result is not checked
// against the target's schema; package resolve walks whole chains.
package definition
