package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/configured/internal/testutil"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join(scenarioDir, name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRunScenarios(t *testing.T) {
	scenarios, err := LoadScenarios(scenarioDir)
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRunRecordsResolution(t *testing.T) {
	result, err := Run(loadScenario(t, "invalid_run_config"))
	require.NoError(t, err)

	assert.Equal(t, "run-invalid", result.Record.RunID)
	assert.Equal(t, int64(1), result.Record.Seq)
	assert.False(t, result.Record.Success)
	assert.Len(t, result.Record.Violations, 4)
	assert.Equal(t, testutil.Epoch, result.Record.CreatedAt.UTC())
	assert.Equal(t, result.Resolution.PlanHash, result.Record.PlanHash)
}

func TestRunDefaultRunID(t *testing.T) {
	s := loadScenario(t, "override_merge")
	require.Empty(t, s.RunID)

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, DefaultRunID, result.Resolution.RunID)
}

func TestRunDefaultPlan(t *testing.T) {
	s := loadScenario(t, "dev_template")
	s.Plan = ""
	s.ConfigFiles = nil
	s.Config = map[string]any{
		"resources": map[string]any{
			"s3":     map[string]any{"config": map[string]any{"bucket": "raw"}},
			"dev_s3": map[string]any{"config": map[string]any{"prefix": "acme"}},
		},
		"ops": map[string]any{
			"load": map[string]any{"config": map[string]any{"table": "raw"}},
		},
	}
	s.Assertions = []Assertion{
		{Type: AssertValid},
		{Type: AssertConfigEquals, Path: "resources.dev_s3.config.bucket", Value: "acme-dev"},
		{Type: AssertConfigEquals, Path: "resources.s3.config.bucket", Value: "raw"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunReportsFailedAssertions(t *testing.T) {
	s := loadScenario(t, "dev_template")
	s.Assertions = []Assertion{
		{Type: AssertInvalid},
		{Type: AssertConfigEquals, Path: "resources.s3.config.bucket", Value: "other"},
		{Type: AssertViolation, Code: "E201"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Assertion failed: invalid")
	assert.Contains(t, result.Errors[1], `resources.s3.config.bucket = "acme-dev"`)
	assert.Contains(t, result.Errors[2], "Expected: E201")
}

func TestRunUnknownPlan(t *testing.T) {
	s := loadScenario(t, "dev_template")
	s.Plan = "prod"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown plan "prod"`)
}

func TestRunInvalidCatalog(t *testing.T) {
	s := loadScenario(t, "dev_template")
	s.Catalog = []string{filepath.Join("..", "..", "testdata", "invalid", "catalog.cue")}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog has 2 error(s)")
	assert.Contains(t, err.Error(), "E107")
}
