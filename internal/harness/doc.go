// Package harness runs resolution scenarios: a catalog, a run config and a
// list of assertions about the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: dev_template
//	description: "What this scenario checks"
//	catalog:
//	  - path/to/catalog.cue
//	plan: dev                # optional; the default plan when omitted
//	run_id: run-1            # optional; "scenario-run" when omitted
//	config_files:            # optional; merged in order before config
//	  - path/to/run.yaml
//	config:                  # optional inline run config
//	  resources:
//	    s3:
//	      config: { prefix: acme }
//	assertions:
//	  - type: valid
//	  - type: config_equals
//	    path: resources.s3.config.bucket
//	    value: acme-dev
//
// Catalog and config file paths are resolved relative to the scenario file.
//
// # Assertion Types
//
//   - valid / invalid: the resolution has no violations / at least one
//   - config_equals: the resolved value at path equals value
//   - violation: a violation with code exists at path
//   - violation_count: exactly count violations were reported
//   - violation_order: the violation codes, in order, equal codes
//   - recorded: the resolution round-trips through the history store
//
// # Deterministic Testing
//
// Every scenario resolves with a fixed run ID and records into a fresh
// in-memory store with a stepping clock, so snapshots compared with
// RunWithGolden are byte-stable.
package harness
