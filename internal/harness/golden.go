package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/resolve"
)

// Snapshot renders a resolution for golden comparison. The plan hash is
// left out so catalog edits that keep the resolved shape do not churn
// snapshots.
func Snapshot(name string, res *resolve.Resolution) ir.Object {
	violations := make(ir.Array, len(res.Violations))
	for i, v := range res.Violations {
		path := make(ir.Array, len(v.Path))
		for j, p := range v.Path {
			path[j] = ir.String(p)
		}
		violations[i] = ir.Object{
			"code":    ir.String(v.Code),
			"path":    path,
			"message": ir.String(v.Message),
		}
	}

	snap := ir.Object{
		"scenario":   ir.String(name),
		"run_id":     ir.String(res.RunID),
		"valid":      ir.Bool(res.OK()),
		"violations": violations,
	}
	if res.Config != nil {
		snap["config"] = res.Config
	}
	return snap
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario cannot be run. A snapshot mismatch fails t.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := ir.MarshalCanonical(Snapshot(name, result.Resolution))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
