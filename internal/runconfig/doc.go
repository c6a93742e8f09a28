// Package runconfig loads run configuration files into ir values.
//
// A run configuration is a YAML, TOML or JSON document whose top level is
// an object. The format is chosen by file extension. Several files can be
// layered with Merge; later files override earlier ones key by key.
//
// Floating-point numbers are rejected, matching the ir value model.
package runconfig
