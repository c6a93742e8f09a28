package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one resolution to perform and what to expect of it.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Catalog lists the CUE files of the catalog. They must belong to one
	// package in one directory.
	Catalog []string `yaml:"catalog"`

	// Plan names the catalog plan to resolve. Empty means the default plan.
	Plan string `yaml:"plan,omitempty"`

	// RunID is the fixed run ID. Empty means DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// ConfigFiles are run config files merged in order.
	ConfigFiles []string `yaml:"config_files,omitempty"`

	// Config is an inline run config merged over ConfigFiles.
	Config map[string]any `yaml:"config,omitempty"`

	// Assertions are checked against the resolution.
	Assertions []Assertion `yaml:"assertions"`
}

// DefaultRunID is the run ID of scenarios that do not set one.
const DefaultRunID = "scenario-run"

// Assertion checks one property of a resolution.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path is a dot-separated path (config_equals, violation).
	Path string `yaml:"path,omitempty"`

	// Value is the expected resolved value (config_equals).
	Value any `yaml:"value,omitempty"`

	// Code is the expected violation code (violation).
	Code string `yaml:"code,omitempty"`

	// Count is the expected number of violations (violation_count).
	Count int `yaml:"count,omitempty"`

	// Codes are the expected violation codes in order (violation_order).
	Codes []string `yaml:"codes,omitempty"`
}

// Assertion type constants.
const (
	AssertValid          = "valid"
	AssertInvalid        = "invalid"
	AssertConfigEquals   = "config_equals"
	AssertViolation      = "violation"
	AssertViolationCount = "violation_count"
	AssertViolationOrder = "violation_order"
	AssertRecorded       = "recorded"
)

// LoadScenario reads and parses a scenario YAML file. Catalog and config
// file paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, p := range scenario.Catalog {
		scenario.Catalog[i] = resolvePath(base, p)
	}
	for i, p := range scenario.ConfigFiles {
		scenario.ConfigFiles[i] = resolvePath(base, p)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Catalog) == 0 {
		return fmt.Errorf("catalog list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range append(append([]string{}, s.Catalog...), s.ConfigFiles...) {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertValid, AssertInvalid, AssertRecorded:
	case AssertConfigEquals:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for config_equals", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for config_equals", index)
		}
	case AssertViolation:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for violation", index)
		}
	case AssertViolationCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for violation_count", index)
		}
	case AssertViolationOrder:
		if len(a.Codes) == 0 {
			return fmt.Errorf("assertions[%d]: codes list is required for violation_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
