// Package resolve turns raw run configuration into fully resolved config for
// every definition in a Plan.
//
// A configured definition resolves one layer at a time. The driver feeds the
// raw entry into the outermost layer, validates each intermediate value
// against the next layer's accepted schema, and finally against the
// innermost definition's own schema. Violations from every definition are
// re-rooted under the entry's run config path and returned together, so a
// user sees one consolidated report:
//
//	[E201] resources.s3.config.prefix: required field is missing (expected string)
//	[E302] ops.unknown_op: no op named "unknown_op" in plan
//
// Run configuration has this shape:
//
//	resources: {<key>: {config: ...}}
//	loggers:   {<key>: {config: ...}}
//	execution: {<executor name>: {config: ...}}
//	ops:       {<op or graph name>: {config: ...}}
//
// Mapping errors and panics are not violations. Resolve returns the error.
package resolve
