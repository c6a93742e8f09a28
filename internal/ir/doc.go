// Package ir provides the configuration value model shared by every other
// package in this module.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is a sealed union: Null, String, Int, Bool, Array, Object
//   - NO float type - configuration numbers are int64
//   - Object keys iterate in RFC 8785 order (UTF-16 code units)
//   - MarshalCanonical is the only serialization used for fingerprints,
//     persisted resolutions and golden snapshots
package ir
