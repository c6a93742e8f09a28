// Package schema provides configuration schemas: shape descriptors that
// validate and coerce raw configuration values and describe themselves as
// Field trees for introspection.
//
// The ConfigSchema contract has two operations:
//   - AsField returns the field descriptor, or nil when no configuration is
//     accepted
//   - Resolve validates and coerces a raw value, returning a Result
//
// Validation failures are data, not errors: Resolve collects every violation
// (not just the first) into a failure Result, each annotated with the path
// to the offending leaf. The error return is reserved for defects.
//
// CUESchema is the concrete implementation. Schemas are written in CUE:
//
//	bucket:  string
//	region:  *"us-east-1" | string   // default
//	retries?: int & >=0              // optional, constrained
//	tags:    [...string]
//
// # Violation order
//
// Declared fields are visited in declaration order; undeclared keys follow in
// RFC 8785 key order. Repeated resolution of identical input therefore yields
// identically ordered violations.
//
// # Concurrency
//
// A cue.Context is not safe for concurrent use. Every schema holds the
// Runtime it was built from, and all CUE evaluation goes through the
// runtime's lock. Schemas are immutable and safe to share.
package schema
