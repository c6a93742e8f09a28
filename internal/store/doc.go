// Package store provides SQLite-backed durable storage for resolution
// history.
//
// Every resolve attempt, valid or not, is recorded once per run ID:
//   - the plan fingerprint it was resolved against
//   - the resolved run config (canonical JSON), or null on failure
//   - the violations, in resolution order
//
// # Ordering
//
// All ordering uses seq INTEGER (a logical clock assigned on write), never
// timestamps. Queries include ORDER BY seq ASC, id ASC COLLATE BINARY so
// results are identical across runs.
//
// # Identity
//
// Record IDs are content hashes over run ID, plan hash, config and
// violations using the DomainResolution fingerprint domain. Writing the same
// run ID twice is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
